package wmerr

import (
	"errors"
	"testing"
)

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	cause := errors.New("no such device")
	err := Wrap(DeviceNotFound, cause, "opening /dev/ttyUSB0")

	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("KindOf: ok = false, want true")
	}
	if kind != DeviceNotFound {
		t.Fatalf("KindOf = %v, want DeviceNotFound", kind)
	}
}

func TestKindOfPlainErrorIsNotOK(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	if ok {
		t.Fatal("KindOf: ok = true for a plain error, want false")
	}
}

func TestFatalClassification(t *testing.T) {
	fatal := []Kind{ConfigInvalid, DeviceNotFound, LinkModeUnsupported}
	nonFatal := []Kind{FrameCorrupt, DecryptFailed, DecodeFailed, OutputFailed, ChildProcessExited}

	for _, k := range fatal {
		if !k.Fatal() {
			t.Errorf("%v.Fatal() = false, want true", k)
		}
	}
	for _, k := range nonFatal {
		if k.Fatal() {
			t.Errorf("%v.Fatal() = true, want false", k)
		}
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(DecodeFailed, nil, "msg"); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}
