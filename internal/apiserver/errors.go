package apiserver

import "errors"

var (
	errNoPipe = errors.New("ceci n'est pas une pipe")
	errNoExit = errors.New("apiserver requires an exit function")
)
