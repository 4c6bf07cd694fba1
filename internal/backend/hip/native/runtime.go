//go:build hip

package native

/*
#cgo CFLAGS: -D__HIP_PLATFORM_AMD__
#cgo LDFLAGS: -lamdhip64

// HIP forward declarations; the hip tag still requires libamdhip64 at link time.
typedef void* hipStream_t;
typedef int hipError_t;

struct copyconfHipPos {
	unsigned long long x, y, z;
};

struct copyconfHipPitchedPtr {
	void* ptr;
	unsigned long long pitch;
	unsigned long long xsize;
	unsigned long long ysize;
};

struct copyconfHipExtent {
	unsigned long long width, height, depth;
};

struct copyconfHipMemcpy3DParms {
	void* srcArray;
	struct copyconfHipPos srcPos;
	struct copyconfHipPitchedPtr srcPtr;
	void* dstArray;
	struct copyconfHipPos dstPos;
	struct copyconfHipPitchedPtr dstPtr;
	struct copyconfHipExtent extent;
	int kind;
};

extern const char* hipGetErrorString(hipError_t err);
extern hipError_t hipGetLastError(void);
extern hipError_t hipGetDeviceCount(int* count);
extern hipError_t hipSetDevice(int device);
extern hipError_t hipStreamCreate(hipStream_t* stream);
extern hipError_t hipStreamDestroy(hipStream_t stream);
extern hipError_t hipStreamSynchronize(hipStream_t stream);
extern hipError_t hipMalloc(void** ptr, unsigned long long size);
extern hipError_t hipMallocPitch(void** ptr, unsigned long long* pitch, unsigned long long width, unsigned long long height);
extern hipError_t hipMalloc3D(struct copyconfHipPitchedPtr* ptr, struct copyconfHipExtent extent);
extern hipError_t hipFree(void* ptr);
extern hipError_t hipHostMalloc(void** ptr, unsigned long long size, unsigned int flags);
extern hipError_t hipHostFree(void* ptr);
extern hipError_t hipMemcpy(void* dst, const void* src, unsigned long long size, int kind);
extern hipError_t hipMemcpyAsync(void* dst, const void* src, unsigned long long size, int kind, hipStream_t stream);
extern hipError_t hipMemcpyHtoD(void* dst, void* src, unsigned long long size);
extern hipError_t hipMemcpyHtoDAsync(void* dst, void* src, unsigned long long size, hipStream_t stream);
extern hipError_t hipMemcpyDtoH(void* dst, void* src, unsigned long long size);
extern hipError_t hipMemcpyDtoHAsync(void* dst, void* src, unsigned long long size, hipStream_t stream);
extern hipError_t hipMemcpyDtoD(void* dst, void* src, unsigned long long size);
extern hipError_t hipMemcpyDtoDAsync(void* dst, void* src, unsigned long long size, hipStream_t stream);
extern hipError_t hipMemcpy2D(void* dst, unsigned long long dpitch, const void* src, unsigned long long spitch, unsigned long long width, unsigned long long height, int kind);
extern hipError_t hipMemcpy2DAsync(void* dst, unsigned long long dpitch, const void* src, unsigned long long spitch, unsigned long long width, unsigned long long height, int kind, hipStream_t stream);
extern hipError_t hipMemcpy3D(const struct copyconfHipMemcpy3DParms* p);
extern hipError_t hipMemcpy3DAsync(const struct copyconfHipMemcpy3DParms* p, hipStream_t stream);

static int copyconfHipStatus(hipError_t err) {
	if (err != 0) {
		(void)hipGetLastError();
	}
	return (int)err;
}

static const char* copyconfHipGetErrorString(int err) {
	return hipGetErrorString((hipError_t)err);
}

static int copyconfHipGetDeviceCount(int* out) {
	return copyconfHipStatus(hipGetDeviceCount(out));
}

static int copyconfHipSetDevice(int device) {
	return copyconfHipStatus(hipSetDevice(device));
}

static int copyconfHipStreamCreate(unsigned long long* out) {
	hipStream_t s = 0;
	hipError_t err = hipStreamCreate(&s);
	*out = (unsigned long long)s;
	return copyconfHipStatus(err);
}

static int copyconfHipStreamDestroy(unsigned long long s) {
	return copyconfHipStatus(hipStreamDestroy((hipStream_t)s));
}

static int copyconfHipStreamSynchronize(unsigned long long s) {
	return copyconfHipStatus(hipStreamSynchronize((hipStream_t)s));
}

static int copyconfHipMalloc(unsigned long long* out, unsigned long long size) {
	void* p = 0;
	hipError_t err = hipMalloc(&p, size);
	*out = (unsigned long long)p;
	return copyconfHipStatus(err);
}

static int copyconfHipHostMalloc(unsigned long long* out, unsigned long long size) {
	void* p = 0;
	hipError_t err = hipHostMalloc(&p, size, 0);
	*out = (unsigned long long)p;
	return copyconfHipStatus(err);
}

static int copyconfHipMallocPitch(unsigned long long* out, unsigned long long* pitch, unsigned long long width, unsigned long long height) {
	void* p = 0;
	hipError_t err = hipMallocPitch(&p, pitch, width, height);
	*out = (unsigned long long)p;
	return copyconfHipStatus(err);
}

static int copyconfHipMalloc3D(unsigned long long* out, unsigned long long* pitch, unsigned long long* xsize, unsigned long long* ysize,
		unsigned long long width, unsigned long long height, unsigned long long depth) {
	struct copyconfHipPitchedPtr p = {0};
	struct copyconfHipExtent e = {width, height, depth};
	hipError_t err = hipMalloc3D(&p, e);
	*out = (unsigned long long)p.ptr;
	*pitch = p.pitch;
	*xsize = p.xsize;
	*ysize = p.ysize;
	return copyconfHipStatus(err);
}

static int copyconfHipFree(unsigned long long p) {
	return copyconfHipStatus(hipFree((void*)p));
}

static int copyconfHipHostFree(unsigned long long p) {
	return copyconfHipStatus(hipHostFree((void*)p));
}

static int copyconfHipMemcpy(unsigned long long dst, unsigned long long src, unsigned long long size, int kind) {
	return copyconfHipStatus(hipMemcpy((void*)dst, (const void*)src, size, kind));
}

static int copyconfHipMemcpyAsync(unsigned long long dst, unsigned long long src, unsigned long long size, int kind, unsigned long long s) {
	return copyconfHipStatus(hipMemcpyAsync((void*)dst, (const void*)src, size, kind, (hipStream_t)s));
}

static int copyconfHipMemcpyHtoD(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return copyconfHipStatus(hipMemcpyHtoD((void*)dst, (void*)src, size));
}

static int copyconfHipMemcpyHtoDAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return copyconfHipStatus(hipMemcpyHtoDAsync((void*)dst, (void*)src, size, (hipStream_t)s));
}

static int copyconfHipMemcpyDtoH(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return copyconfHipStatus(hipMemcpyDtoH((void*)dst, (void*)src, size));
}

static int copyconfHipMemcpyDtoHAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return copyconfHipStatus(hipMemcpyDtoHAsync((void*)dst, (void*)src, size, (hipStream_t)s));
}

static int copyconfHipMemcpyDtoD(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return copyconfHipStatus(hipMemcpyDtoD((void*)dst, (void*)src, size));
}

static int copyconfHipMemcpyDtoDAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return copyconfHipStatus(hipMemcpyDtoDAsync((void*)dst, (void*)src, size, (hipStream_t)s));
}

static int copyconfHipMemcpy2D(unsigned long long dst, unsigned long long dpitch, unsigned long long src, unsigned long long spitch,
		unsigned long long width, unsigned long long height, int kind) {
	return copyconfHipStatus(hipMemcpy2D((void*)dst, dpitch, (const void*)src, spitch, width, height, kind));
}

static int copyconfHipMemcpy2DAsync(unsigned long long dst, unsigned long long dpitch, unsigned long long src, unsigned long long spitch,
		unsigned long long width, unsigned long long height, int kind, unsigned long long s) {
	return copyconfHipStatus(hipMemcpy2DAsync((void*)dst, dpitch, (const void*)src, spitch, width, height, kind, (hipStream_t)s));
}

static int copyconfHipMemcpy3D(
		unsigned long long src, unsigned long long spitch, unsigned long long sxsize, unsigned long long sysize,
		unsigned long long dst, unsigned long long dpitch, unsigned long long dxsize, unsigned long long dysize,
		unsigned long long width, unsigned long long height, unsigned long long depth,
		int kind, int async, unsigned long long s) {
	struct copyconfHipMemcpy3DParms p = {0};
	p.srcPtr.ptr = (void*)src;
	p.srcPtr.pitch = spitch;
	p.srcPtr.xsize = sxsize;
	p.srcPtr.ysize = sysize;
	p.dstPtr.ptr = (void*)dst;
	p.dstPtr.pitch = dpitch;
	p.dstPtr.xsize = dxsize;
	p.dstPtr.ysize = dysize;
	p.extent.width = width;
	p.extent.height = height;
	p.extent.depth = depth;
	p.kind = kind;
	if (async) {
		return copyconfHipStatus(hipMemcpy3DAsync(&p, (hipStream_t)s));
	}
	return copyconfHipStatus(hipMemcpy3D(&p));
}
*/
import "C"

import (
	"fmt"
)

// Error is a non-zero hipError_t.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hip runtime error %d: %s", e.Code, e.Message)
}

// Pitched mirrors hipPitchedPtr.
type Pitched struct {
	Ptr   uintptr
	Pitch int64
	XSize int64
	YSize int64
}

// Extent mirrors hipExtent. Width is in bytes.
type Extent struct {
	Width, Height, Depth int64
}

func DeviceCount() (int, error) {
	var count C.int
	if err := hipErr(C.copyconfHipGetDeviceCount(&count)); err != nil {
		return 0, err
	}
	return int(count), nil
}

func SetDevice(device int) error {
	return hipErr(C.copyconfHipSetDevice(C.int(device)))
}

func StreamCreate() (uintptr, error) {
	var s C.ulonglong
	if err := hipErr(C.copyconfHipStreamCreate(&s)); err != nil {
		return 0, err
	}
	return uintptr(s), nil
}

func StreamDestroy(s uintptr) error {
	return hipErr(C.copyconfHipStreamDestroy(C.ulonglong(s)))
}

func StreamSynchronize(s uintptr) error {
	return hipErr(C.copyconfHipStreamSynchronize(C.ulonglong(s)))
}

func Malloc(bytes int64) (uintptr, error) {
	var p C.ulonglong
	if err := hipErr(C.copyconfHipMalloc(&p, C.ulonglong(bytes))); err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func HostMalloc(bytes int64) (uintptr, error) {
	var p C.ulonglong
	if err := hipErr(C.copyconfHipHostMalloc(&p, C.ulonglong(bytes))); err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func MallocPitch(width, height int64) (uintptr, int64, error) {
	var p, pitch C.ulonglong
	if err := hipErr(C.copyconfHipMallocPitch(&p, &pitch, C.ulonglong(width), C.ulonglong(height))); err != nil {
		return 0, 0, err
	}
	return uintptr(p), int64(pitch), nil
}

func Malloc3D(e Extent) (Pitched, error) {
	var p, pitch, xsize, ysize C.ulonglong
	err := hipErr(C.copyconfHipMalloc3D(&p, &pitch, &xsize, &ysize,
		C.ulonglong(e.Width), C.ulonglong(e.Height), C.ulonglong(e.Depth)))
	if err != nil {
		return Pitched{}, err
	}
	return Pitched{Ptr: uintptr(p), Pitch: int64(pitch), XSize: int64(xsize), YSize: int64(ysize)}, nil
}

func Free(p uintptr) error {
	return hipErr(C.copyconfHipFree(C.ulonglong(p)))
}

func HostFree(p uintptr) error {
	return hipErr(C.copyconfHipHostFree(C.ulonglong(p)))
}

func Memcpy(dst, src uintptr, bytes int64, kind int) error {
	return hipErr(C.copyconfHipMemcpy(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.int(kind)))
}

func MemcpyAsync(dst, src uintptr, bytes int64, kind int, s uintptr) error {
	return hipErr(C.copyconfHipMemcpyAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.int(kind), C.ulonglong(s)))
}

func MemcpyHtoD(dst, src uintptr, bytes int64) error {
	return hipErr(C.copyconfHipMemcpyHtoD(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyHtoDAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return hipErr(C.copyconfHipMemcpyHtoDAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func MemcpyDtoH(dst, src uintptr, bytes int64) error {
	return hipErr(C.copyconfHipMemcpyDtoH(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyDtoHAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return hipErr(C.copyconfHipMemcpyDtoHAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func MemcpyDtoD(dst, src uintptr, bytes int64) error {
	return hipErr(C.copyconfHipMemcpyDtoD(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyDtoDAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return hipErr(C.copyconfHipMemcpyDtoDAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func Memcpy2D(dst uintptr, dpitch int64, src uintptr, spitch int64, width, height int64, kind int) error {
	return hipErr(C.copyconfHipMemcpy2D(C.ulonglong(dst), C.ulonglong(dpitch), C.ulonglong(src), C.ulonglong(spitch),
		C.ulonglong(width), C.ulonglong(height), C.int(kind)))
}

func Memcpy2DAsync(dst uintptr, dpitch int64, src uintptr, spitch int64, width, height int64, kind int, s uintptr) error {
	return hipErr(C.copyconfHipMemcpy2DAsync(C.ulonglong(dst), C.ulonglong(dpitch), C.ulonglong(src), C.ulonglong(spitch),
		C.ulonglong(width), C.ulonglong(height), C.int(kind), C.ulonglong(s)))
}

func Memcpy3D(dst, src Pitched, e Extent, kind int) error {
	return memcpy3D(dst, src, e, kind, false, 0)
}

func Memcpy3DAsync(dst, src Pitched, e Extent, kind int, s uintptr) error {
	return memcpy3D(dst, src, e, kind, true, s)
}

func memcpy3D(dst, src Pitched, e Extent, kind int, async bool, s uintptr) error {
	var a C.int
	if async {
		a = 1
	}
	return hipErr(C.copyconfHipMemcpy3D(
		C.ulonglong(src.Ptr), C.ulonglong(src.Pitch), C.ulonglong(src.XSize), C.ulonglong(src.YSize),
		C.ulonglong(dst.Ptr), C.ulonglong(dst.Pitch), C.ulonglong(dst.XSize), C.ulonglong(dst.YSize),
		C.ulonglong(e.Width), C.ulonglong(e.Height), C.ulonglong(e.Depth),
		C.int(kind), a, C.ulonglong(s)))
}

func hipErr(code C.int) error {
	if code == 0 {
		return nil
	}
	msg := C.GoString(C.copyconfHipGetErrorString(code))
	return &Error{Code: int(code), Message: msg}
}
