package databases

// go generate: mockery --name CaseDatabase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/docket-api/models"
)

const caseName = "cases"

// CaseDatabase contains the methods to use with the case database
type CaseDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Case, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Case, error)
	InsertOne(ctx context.Context, c models.Case) (InsertOneResultHelper, error)
	Save(ctx context.Context, c *models.Case) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type caseDatabase struct {
	db DatabaseHelper
}

// NewCaseDatabase initializes a new instance of case database with the provided db connection
func NewCaseDatabase(db DatabaseHelper) CaseDatabase {
	return &caseDatabase{
		db: db,
	}
}

func (c *caseDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Case, error) {
	courtCase := &models.Case{}
	err := c.db.Collection(caseName).FindOne(ctx, filter, opts...).Decode(&courtCase)
	if err != nil {
		return nil, err
	}
	return courtCase, nil
}

func (c *caseDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Case, error) {
	var cases []models.Case
	curr, err := c.db.Collection(caseName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &cases)
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func (c *caseDatabase) InsertOne(ctx context.Context, courtCase models.Case) (InsertOneResultHelper, error) {
	return c.db.Collection(caseName).InsertOne(ctx, courtCase)
}

// Save replaces the stored document for the case's docket with c
func (c *caseDatabase) Save(ctx context.Context, courtCase *models.Case) error {
	matched, err := c.db.Collection(caseName).ReplaceOne(ctx, bson.M{"docket": courtCase.Docket}, courtCase)
	if err != nil {
		return err
	}
	if matched == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (c *caseDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(caseName).DeleteOne(ctx, filter, opts...)
}

func (c *caseDatabase) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(caseName).DeleteMany(ctx, filter)
}

// EnsureIndexes creates the unique docket index
func (c *caseDatabase) EnsureIndexes(ctx context.Context) error {
	return c.db.Collection(caseName).CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "docket", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

// IsNotFound reports whether err means no document matched
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
