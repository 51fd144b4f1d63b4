package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/databases/mocks"
	"github.com/linesmerrill/docket-api/models"
)

func TestNewCaseDatabase(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	caseDB := databases.NewCaseDatabase(db)

	assert.NotEmpty(t, caseDB)
}

func TestCaseDatabase_FindOne(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Case)
		(*arg).Docket = "12-345"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	courtCase, err := caseDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, courtCase)
	assert.EqualError(t, err, "mocked-error")

	courtCase, err = caseDba.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, &models.Case{Docket: "12-345"}, courtCase)
	assert.NoError(t, err)
}

func TestCaseDatabase_Find(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorCorrect databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorCorrect = &mocks.CursorHelper{}

	cursorCorrect.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Case)
		*arg = []models.Case{{Docket: "12-345"}}
	})
	cursorCorrect.(*mocks.CursorHelper).
		On("Close", context.Background()).
		Return(nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": true}).
		Return(nil, errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"type": "civil"}).
		Return(cursorCorrect, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	cases, err := caseDba.Find(context.Background(), bson.M{"error": true})

	assert.Empty(t, cases)
	assert.EqualError(t, err, "mocked-error")

	cases, err = caseDba.Find(context.Background(), bson.M{"type": "civil"})

	assert.Equal(t, []models.Case{{Docket: "12-345"}}, cases)
	assert.NoError(t, err)
	cursorCorrect.(*mocks.CursorHelper).AssertCalled(t, "Close", context.Background())
}

func TestCaseDatabase_Save(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	saved := &models.Case{Docket: "12-345"}
	missing := &models.Case{Docket: "99-999"}
	broken := &models.Case{Docket: "00-000"}

	collectionHelper.On("ReplaceOne", context.Background(), bson.M{"docket": "12-345"}, saved).Return(int64(1), nil)
	collectionHelper.On("ReplaceOne", context.Background(), bson.M{"docket": "99-999"}, missing).Return(int64(0), nil)
	collectionHelper.On("ReplaceOne", context.Background(), bson.M{"docket": "00-000"}, broken).Return(int64(0), errors.New("mocked-error"))
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	assert.NoError(t, caseDba.Save(context.Background(), saved))

	err := caseDba.Save(context.Background(), missing)
	assert.True(t, databases.IsNotFound(err))

	assert.EqualError(t, caseDba.Save(context.Background(), broken), "mocked-error")
}

func TestCaseDatabase_DeleteOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("DeleteOne", context.Background(), bson.M{"docket": "12-345"}).Return(int64(1), nil)
	collectionHelper.On("DeleteOne", context.Background(), bson.M{"docket": "99-999"}).Return(int64(0), nil)
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	n, err := caseDba.DeleteOne(context.Background(), bson.M{"docket": "12-345"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = caseDba.DeleteOne(context.Background(), bson.M{"docket": "99-999"})
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCaseDatabase_InsertOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	c := models.Case{Docket: "12-345"}
	insertResult.On("Decode").Return("mocked-id")
	collectionHelper.On("InsertOne", context.Background(), c).Return(insertResult, nil)
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	res, err := caseDba.InsertOne(context.Background(), c)
	assert.NoError(t, err)
	assert.Equal(t, "mocked-id", res.Decode())
}

func TestCaseDatabase_EnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndex", context.Background(), mock.MatchedBy(func(m mongo.IndexModel) bool {
		return m.Options != nil && m.Options.Unique != nil && *m.Options.Unique
	})).Return(nil)
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	assert.NoError(t, caseDba.EnsureIndexes(context.Background()))
}

func TestIsDuplicateKey(t *testing.T) {
	err := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, databases.IsDuplicateKey(err))
	assert.False(t, databases.IsDuplicateKey(errors.New("other")))
}
