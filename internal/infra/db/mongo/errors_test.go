package mongo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsWriteConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"command write conflict", mongo.CommandError{Code: 112, Name: "WriteConflict"}, true},
		{"transient label", mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, true},
		{"write exception", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 112}}}, true},
		{"wrapped", fmt.Errorf("commit: %w", mongo.CommandError{Code: 112}), true},
		{"duplicate key", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}, false},
		{"other server error", mongo.CommandError{Code: 2, Name: "BadValue"}, false},
		{"plain", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isWriteConflict(tc.err))
		})
	}
}
