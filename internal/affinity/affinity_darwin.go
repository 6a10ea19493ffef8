//go:build darwin

package affinity

// Darwin has no thread-to-core pinning syscall. The binder acts as an
// advisory grouping hint only, so local development runs keep working.
type hintBinder struct{}

func platformBinder() Binder {
	return hintBinder{}
}

func (hintBinder) Bind(core int) error {
	return nil
}

func (hintBinder) Capability() Capability {
	return AdvisoryHint
}

func RaisePriority() error {
	return nil
}
