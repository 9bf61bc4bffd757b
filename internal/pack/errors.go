package pack

import "errors"

var ErrPack = errors.New("artifact assembly failed")
