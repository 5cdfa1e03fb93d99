package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	req := require.New(t)

	id, err := parseIdentity("springdata|BEGIN|42")
	req.NoError(err)
	req.Equal(42, id)
}

func TestParseIdentity_MissingDelimiter(t *testing.T) {
	req := require.New(t)

	_, err := parseIdentity("42")
	req.ErrorIs(err, ErrInvalidSession)
}

func TestParseIdentity_NonNumericID(t *testing.T) {
	req := require.New(t)

	_, err := parseIdentity("springdata|BEGIN|forty-two")
	req.ErrorIs(err, ErrInvalidSession)

	_, err = parseIdentity("springdata|BEGIN|")
	req.ErrorIs(err, ErrInvalidSession)
}
