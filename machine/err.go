package machine

import (
	"errors"

	"github.com/edsim/lc3kit/translate"
)

var f = translate.From

var (
	ErrImageOverflow = errors.New(f("image overflows memory"))
)
