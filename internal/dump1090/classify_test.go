package dump1090

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
		records int
	}{
		{"valid", http.StatusOK, `{"aircraft":[{"hex":"abc123"},{"hex":"abc123"}]}`, OutcomeOK, 2},
		{"valid empty list", http.StatusOK, `{"now":1,"aircraft":[]}`, OutcomeOK, 0},
		{"valid with whitespace", http.StatusOK, "\n  {\"aircraft\": [ {\"hex\":\"a\"} ]}\n", OutcomeOK, 1},
		{"non-200", http.StatusBadGateway, `{"aircraft":[]}`, OutcomeTransient, 0},
		{"redirect status", http.StatusMovedPermanently, ``, OutcomeTransient, 0},
		{"empty body", http.StatusOK, ``, OutcomeInvalid, 0},
		{"truncated JSON", http.StatusOK, `{"aircraft":[{"hex":`, OutcomeInvalid, 0},
		{"string top level", http.StatusOK, `"aircraft"`, OutcomeInvalid, 0},
		{"null top level", http.StatusOK, `null`, OutcomeInvalid, 0},
		{"missing key", http.StatusOK, `{"Aircraft":[]}`, OutcomeInvalid, 0},
		{"aircraft is a number", http.StatusOK, `{"aircraft":3}`, OutcomeInvalid, 0},
		{"nested array", http.StatusOK, `{"aircraft":[[{"hex":"a"}]]}`, OutcomeInvalid, 0},
		{"null record", http.StatusOK, `{"aircraft":[{"hex":"a"},null]}`, OutcomeInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, outcome, err := classify(tt.status, []byte(tt.body))
			assert.Equal(t, tt.outcome, outcome)

			if tt.outcome != OutcomeOK {
				assert.Error(t, err)
				assert.Nil(t, snap)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Len(t, snap.Records, tt.records)
			assert.Equal(t, tt.body, string(snap.Raw))
		})
	}
}

func TestClassify_KeepsDuplicatesInOrder(t *testing.T) {
	body := `{"aircraft":[{"hex":"abc123","flight":"A"},{"hex":"def456"},{"hex":"abc123","flight":"B"}]}`

	snap, outcome, err := classify(http.StatusOK, []byte(body))
	require.NoError(t, err)
	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, snap.Records, 3)

	assert.Equal(t, "A", snap.Records[0].FlightID())
	assert.Equal(t, "def456", snap.Records[1].Hex)
	assert.Equal(t, "B", snap.Records[2].FlightID())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "transient", OutcomeTransient.String())
	assert.Equal(t, "invalid", OutcomeInvalid.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
