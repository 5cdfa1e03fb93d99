package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialogKey_Symmetric(t *testing.T) {
	req := require.New(t)

	req.Equal("1-2", DialogKey(1, 2))
	req.Equal("1-2", DialogKey(2, 1))
	req.Equal(DialogKey(14, 3), DialogKey(3, 14))
}

func TestDialogPartner(t *testing.T) {
	req := require.New(t)

	req.Equal(2, DialogPartner("1-2", 1))
	req.Equal(1, DialogPartner("1-2", 2))
	req.Equal(14, DialogPartner("3-14", 3))
	req.Zero(DialogPartner("not-a-key", 1))
}

func TestDialogPartner_SelfDialog(t *testing.T) {
	require.Equal(t, 5, DialogPartner("5-5", 5))
}
