package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "facelive/pkg/domain"
)

func TestParseSessionID(t *testing.T) {
	valid := id.NewSessionID()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: valid.String()},
		{name: "empty", input: "", wantErr: true},
		{name: "malformed", input: "not-a-uuid", wantErr: true},
		{name: "nil uuid", input: "00000000-0000-0000-0000-000000000000", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 80), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := id.ParseSessionID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, valid, parsed)
		})
	}
}

func TestIDsAreDistinctTypes(t *testing.T) {
	// SessionID and SubjectID share one parse path; the two string forms
	// must still round-trip through their own types.
	subject, err := id.ParseSubjectID(id.NewSubjectID().String())
	require.NoError(t, err)
	assert.False(t, subject.IsNil())

	submission, err := id.ParseSubmissionID(id.NewSubmissionID().String())
	require.NoError(t, err)
	assert.False(t, submission.IsNil())
}

func TestSessionIDJSONRoundTrip(t *testing.T) {
	original := id.NewSessionID()

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `"`+original.String()+`"`, string(data),
		"IDs marshal as canonical UUID strings, not byte arrays")

	var decoded id.SessionID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestSessionIDJSONRejectsInvalid(t *testing.T) {
	var decoded id.SessionID
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &decoded))
}

func TestIsNil(t *testing.T) {
	assert.True(t, id.SessionID{}.IsNil())
	assert.True(t, id.SubjectID{}.IsNil())
	assert.False(t, id.NewSessionID().IsNil())
}
