package sysprop

import (
	"errors"
)

var ErrSyntax = errors.New("sysprop: syntax error")
