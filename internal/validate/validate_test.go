package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

type sampleRequest struct {
	Title    string `json:"title" validate:"required"`
	Status   string `json:"status" validate:"omitempty,oneof=todo done"`
	Progress int    `json:"progress" validate:"min=0,max=100"`
}

func TestStructValid(t *testing.T) {
	err := Struct("invalid data", &sampleRequest{Title: "ok", Status: "todo", Progress: 50})
	assert.NoError(t, err)
}

func TestStructCollectsAllViolations(t *testing.T) {
	err := Struct("invalid data", &sampleRequest{Status: "doing", Progress: 150})
	require.Error(t, err)
	require.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	var cErr *cerr.Error
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Details, 3)

	byField := make(map[string]string, len(cErr.Details))
	for _, d := range cErr.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "is required", byField["title"])
	assert.Equal(t, "must be one of: todo done", byField["status"])
	assert.Equal(t, "must be at most 100", byField["progress"])
}

func TestStructUsesJSONFieldNames(t *testing.T) {
	type renamed struct {
		StartDate string `json:"startDate" validate:"required"`
	}
	err := Struct("invalid data", &renamed{})
	var cErr *cerr.Error
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Details, 1)
	assert.Equal(t, "startDate", cErr.Details[0].Field)
}
