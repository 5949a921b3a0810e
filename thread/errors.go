package thread

import "vjvm/excnames"

// InterruptedError is returned by CheckInterrupted/Sleep when the
// thread's interrupted flag was set, the host counterpart of
// java.lang.InterruptedException.
type InterruptedError struct{}

func (e *InterruptedError) Error() string { return "thread interrupted" }

func (e *InterruptedError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.InterruptedException, e.Error())
}
