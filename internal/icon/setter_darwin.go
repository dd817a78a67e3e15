//go:build darwin && cgo

package icon

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework AppKit
#include <stdlib.h>
#import <AppKit/AppKit.h>

// Returns 0 on success, 1 if the image data is unusable, 2 if the
// workspace refused the icon.
static int setFileIcon(const void *data, int length, const char *path) {
  @autoreleasepool {
    NSImage *img = nil;
    if (data != NULL && length > 0) {
      NSData *d = [NSData dataWithBytes:data length:(NSUInteger)length];
      img = [[NSImage alloc] initWithData:d];
      if (img == nil) { return 1; }
    }
    NSString *p = [NSString stringWithUTF8String:path];
    if (p == nil) { return 2; }
    BOOL ok = [[NSWorkspace sharedWorkspace] setIcon:img forFile:p options:0];
    return ok ? 0 : 2;
  }
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"svgkit/internal/domain"
)

type workspaceSetter struct{}

// NewSetter returns the NSWorkspace-backed setter.
func NewSetter() Setter {
	return workspaceSetter{}
}

func (workspaceSetter) SetIcon(pngData []byte, target string) error {
	if len(pngData) == 0 {
		return fmt.Errorf("%w: empty image", domain.ErrImageLoad)
	}
	data := C.CBytes(pngData)
	defer C.free(data)
	return call(data, len(pngData), target)
}

// ClearIcon passes a nil image, which makes NSWorkspace drop the custom icon.
func (workspaceSetter) ClearIcon(target string) error {
	return call(nil, 0, target)
}

func call(data unsafe.Pointer, length int, target string) error {
	cpath := C.CString(target)
	defer C.free(unsafe.Pointer(cpath))

	switch C.setFileIcon(data, C.int(length), cpath) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%w: AppKit could not read the image", domain.ErrImageLoad)
	default:
		return fmt.Errorf("%w for %s", domain.ErrIconAssign, target)
	}
}
