package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/docket-api/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		tag  string
		want bson.M
	}{
		{"", bson.M{}},
		{"appellate", bson.M{"appeal": true}},
		{"original", bson.M{"appeal": false}},
		{"federal", bson.M{"level": "federal"}},
		{"state", bson.M{"level": "state"}},
		{"closed", bson.M{"close": true}},
		{"open", bson.M{"close": false}},
		{"sealed", bson.M{"seal": true}},
		{"public", bson.M{"seal": false}},
		{"criminal", bson.M{"type": "criminal"}},
		{"civil", bson.M{"type": "civil"}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := Translate(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateUnknown(t *testing.T) {
	got, err := Translate("bogus")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, models.ErrInvalidFilter)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "appellate, original")
}

func TestTranslateReturnsCopy(t *testing.T) {
	got, err := Translate("civil")
	require.NoError(t, err)
	got["type"] = "criminal"

	again, _ := Translate("civil")
	assert.Equal(t, "civil", again["type"])
}

func TestTagsAllTranslate(t *testing.T) {
	for _, tag := range Tags() {
		_, err := Translate(tag)
		assert.NoError(t, err, tag)
	}
}
