package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Case roles. Judge, plaintiff and defendant hold access tokens, amici never does.
const (
	RoleJudge     = "judge"
	RolePlaintiff = "plaintiff"
	RoleDefendant = "defendant"
	RoleAmici     = "amici"
)

// RevokedToken replaces a party token once its access has been withdrawn
const RevokedToken = "revoked access"

// Case holds the structure for the cases collection in mongo
type Case struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Docket    string             `json:"docket" bson:"docket"`
	House     string             `json:"house" bson:"house"`
	Level     string             `json:"level" bson:"level"` // "federal", "state"
	Type      string             `json:"type" bson:"type"`   // "criminal", "civil"
	Date      primitive.DateTime `json:"date" bson:"date"`
	Appeal    bool               `json:"appeal" bson:"appeal"`
	Seal      bool               `json:"seal" bson:"seal"`
	Close     bool               `json:"close" bson:"close"`
	Judge     Party              `json:"judge" bson:"judge"`
	Plaintiff Party              `json:"plaintiff" bson:"plaintiff"`
	Defendant Party              `json:"defendant" bson:"defendant"`
	Amici     *Party             `json:"amici,omitempty" bson:"amici,omitempty"`
	Links     []Link             `json:"links" bson:"links"`
	Messages  []Message          `json:"messages" bson:"messages"`
}

// Party is one side of a case and the token that grants access to its view
type Party struct {
	Person string `json:"person" bson:"person"`
	Token  string `json:"token,omitempty" bson:"token"`
}

// Link points at an uploaded document. Side and Name identify it within a case.
type Link struct {
	Side    string             `json:"side" bson:"side"`
	Name    string             `json:"name" bson:"name"`
	Path    string             `json:"path" bson:"path"`
	Version int32              `json:"version" bson:"version"`
	Date    primitive.DateTime `json:"date" bson:"date"`
}

// Message is a single chat line stored on the case
type Message struct {
	Message string             `json:"message" bson:"message"`
	Name    string             `json:"name" bson:"name"`
	Date    primitive.DateTime `json:"date" bson:"date"`
}

// Party returns the party for a token holding role
func (c *Case) Party(role string) (*Party, bool) {
	switch role {
	case RoleJudge:
		return &c.Judge, true
	case RolePlaintiff:
		return &c.Plaintiff, true
	case RoleDefendant:
		return &c.Defendant, true
	}
	return nil, false
}

// FindLink returns the index of the link for side and name, or -1
func (c *Case) FindLink(side, name string) int {
	for i, l := range c.Links {
		if l.Side == side && l.Name == name {
			return i
		}
	}
	return -1
}

// Redacted returns a copy of the case with every party token cleared except the
// one belonging to keep. An empty keep clears them all.
func (c Case) Redacted(keep string) Case {
	for _, role := range []string{RoleJudge, RolePlaintiff, RoleDefendant} {
		if role == keep {
			continue
		}
		p, _ := c.Party(role)
		p.Token = ""
	}
	if c.Amici != nil {
		a := *c.Amici
		a.Token = ""
		c.Amici = &a
	}
	c.Links = append([]Link(nil), c.Links...)
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

// IsTokenRole reports whether role is one of the token holding roles
func IsTokenRole(role string) bool {
	return role == RoleJudge || role == RolePlaintiff || role == RoleDefendant
}

// IsSide reports whether side may own documents
func IsSide(side string) bool {
	return IsTokenRole(side) || side == RoleAmici
}
