package runtime

// loadError signals a model that could not be loaded. Fatal at startup: no
// model, no server.
type loadError struct{ msg string }

func (e loadError) Error() string { return e.msg }

// ErrLoad constructs a loadError.
func ErrLoad(msg string) error { return loadError{msg: msg} }

// IsLoad reports whether err indicates a failed model load.
func IsLoad(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// predictError signals a per-request inference failure. Recoverable: the
// process and the loaded model stay healthy for subsequent requests.
type predictError struct{ msg string }

func (e predictError) Error() string { return e.msg }

// ErrPredict constructs a predictError.
func ErrPredict(msg string) error { return predictError{msg: msg} }

// IsPredict reports whether err indicates a failed inference call.
func IsPredict(err error) bool {
	_, ok := err.(predictError)
	return ok
}

// unavailableError signals a runtime capability that is not present in this
// build or on this host (e.g. the onnx binding), so load falls back.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrRuntimeUnavailable constructs an unavailableError.
func ErrRuntimeUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsRuntimeUnavailable reports whether err indicates a missing runtime capability.
func IsRuntimeUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
