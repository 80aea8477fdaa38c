package obj

import (
	"errors"

	"github.com/edsim/lc3kit/translate"
)

var f = translate.From

var (
	ErrNoOrigin  = errors.New(f("image has no origin word"))
	ErrTruncated = errors.New(f("image ends mid-word"))
)
