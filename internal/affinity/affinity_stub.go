//go:build !linux && !darwin

package affinity

type noopBinder struct{}

func platformBinder() Binder {
	return noopBinder{}
}

func (noopBinder) Bind(core int) error {
	return nil
}

func (noopBinder) Capability() Capability {
	return NoOp
}

func RaisePriority() error {
	return nil
}
