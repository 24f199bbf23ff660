package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMinorUnit(t *testing.T) {
	assert.Equal(t, int64(15500), ToMinorUnit(155))
	assert.Equal(t, int64(1999), ToMinorUnit(19.99))
	// 0.1+0.2 style float noise must round, not truncate.
	assert.Equal(t, int64(30), ToMinorUnit(0.1+0.2))
	assert.Equal(t, int64(1005), ToMinorUnit(10.049999999))
	assert.Equal(t, int64(0), ToMinorUnit(0))
}

func TestFromMinorUnit(t *testing.T) {
	assert.Equal(t, 155.0, FromMinorUnit(15500))
	assert.Equal(t, 19.99, FromMinorUnit(1999))
	assert.Equal(t, ToMinorUnit(FromMinorUnit(123456)), int64(123456))
}
