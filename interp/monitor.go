package interp

import (
	"fmt"
	"errors"

	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
)

// execMonitor implements monitorenter/monitorexit. A null reference is
// a NullPointerException for either instruction; monitorexit by a
// thread that does not hold the monitor is IllegalMonitorStateException,
// per JVMS ยง8.13's object-locking rules.
func execMonitor(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	v, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	if v == nil {
		return throwResult(excnames.NullPointerException, "monitor: null"), nil
	}
	m, ok := v.(object.Monitorable)
	if !ok {
		return result{}, fmt.Errorf("monitor: operand %T is not monitorable", v)
	}

	switch ins.Op {
	case opcode.Monitorenter:
		m.Monitor().Enter(th.ID)
		return contResult, nil
	case opcode.Monitorexit:
		if err := m.Monitor().Exit(th.ID); err != nil {
			if errors.Is(err, object.ErrNotOwner) {
				return throwResult(excnames.IllegalMonitorStateException, err.Error()), nil
			}
			return result{}, err
		}
		return contResult, nil
	}
	return result{}, fmt.Errorf("unreachable monitor opcode %s", opcode.Name(ins.Op))
}
