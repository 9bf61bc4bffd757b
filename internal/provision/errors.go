package provision

import "errors"

var (
	ErrProvision     = errors.New("build environment provisioning failed")
	ErrCommandFailed = errors.New("command failed")
)
