//go:build cuda

package native

/*
#cgo LDFLAGS: -lcudart -lcuda

// Minimal CUDA runtime and driver forward declarations to avoid requiring headers at compile time.
// Linker will still require libcudart and libcuda when building with the cuda tag.
typedef void* cudaStream_t;
typedef int cudaError_t;
typedef int CUresult;
typedef unsigned long long CUdeviceptr;

struct copyconfCudaPos {
	unsigned long long x, y, z;
};

struct copyconfCudaPitchedPtr {
	void* ptr;
	unsigned long long pitch;
	unsigned long long xsize;
	unsigned long long ysize;
};

struct copyconfCudaExtent {
	unsigned long long width, height, depth;
};

struct copyconfCudaMemcpy3DParms {
	void* srcArray;
	struct copyconfCudaPos srcPos;
	struct copyconfCudaPitchedPtr srcPtr;
	void* dstArray;
	struct copyconfCudaPos dstPos;
	struct copyconfCudaPitchedPtr dstPtr;
	struct copyconfCudaExtent extent;
	int kind;
};

extern const char* cudaGetErrorString(cudaError_t err);
extern cudaError_t cudaGetLastError(void);
extern cudaError_t cudaGetDeviceCount(int* count);
extern cudaError_t cudaSetDevice(int device);
extern cudaError_t cudaStreamCreate(cudaStream_t* stream);
extern cudaError_t cudaStreamDestroy(cudaStream_t stream);
extern cudaError_t cudaStreamSynchronize(cudaStream_t stream);
extern cudaError_t cudaMalloc(void** ptr, unsigned long long size);
extern cudaError_t cudaMallocPitch(void** ptr, unsigned long long* pitch, unsigned long long width, unsigned long long height);
extern cudaError_t cudaMalloc3D(struct copyconfCudaPitchedPtr* ptr, struct copyconfCudaExtent extent);
extern cudaError_t cudaFree(void* ptr);
extern cudaError_t cudaMallocHost(void** ptr, unsigned long long size);
extern cudaError_t cudaFreeHost(void* ptr);
extern cudaError_t cudaMemcpy(void* dst, const void* src, unsigned long long size, int kind);
extern cudaError_t cudaMemcpyAsync(void* dst, const void* src, unsigned long long size, int kind, cudaStream_t stream);
extern cudaError_t cudaMemcpy2D(void* dst, unsigned long long dpitch, const void* src, unsigned long long spitch, unsigned long long width, unsigned long long height, int kind);
extern cudaError_t cudaMemcpy2DAsync(void* dst, unsigned long long dpitch, const void* src, unsigned long long spitch, unsigned long long width, unsigned long long height, int kind, cudaStream_t stream);
extern cudaError_t cudaMemcpy3D(const struct copyconfCudaMemcpy3DParms* p);
extern cudaError_t cudaMemcpy3DAsync(const struct copyconfCudaMemcpy3DParms* p, cudaStream_t stream);

extern CUresult cuGetErrorString(CUresult err, const char** str);
extern CUresult cuMemcpyHtoD_v2(CUdeviceptr dst, const void* src, unsigned long long size);
extern CUresult cuMemcpyHtoDAsync_v2(CUdeviceptr dst, const void* src, unsigned long long size, cudaStream_t stream);
extern CUresult cuMemcpyDtoH_v2(void* dst, CUdeviceptr src, unsigned long long size);
extern CUresult cuMemcpyDtoHAsync_v2(void* dst, CUdeviceptr src, unsigned long long size, cudaStream_t stream);
extern CUresult cuMemcpyDtoD_v2(CUdeviceptr dst, CUdeviceptr src, unsigned long long size);
extern CUresult cuMemcpyDtoDAsync_v2(CUdeviceptr dst, CUdeviceptr src, unsigned long long size, cudaStream_t stream);

// Failed calls leave the error in the thread's last-error slot; clear it so
// later calls report only their own status.
static int copyconfCudaStatus(cudaError_t err) {
	if (err != 0) {
		(void)cudaGetLastError();
	}
	return (int)err;
}

static const char* copyconfCudaGetErrorString(int err) {
	return cudaGetErrorString((cudaError_t)err);
}

static const char* copyconfCuGetErrorString(int err) {
	const char* s = 0;
	if (cuGetErrorString((CUresult)err, &s) != 0 || s == 0) {
		return "unrecognized driver error";
	}
	return s;
}

static int copyconfCudaGetDeviceCount(int* out) {
	return copyconfCudaStatus(cudaGetDeviceCount(out));
}

// cudaFree(0) forces the primary context so driver API copies have one.
static int copyconfCudaSetDevice(int device) {
	cudaError_t err = cudaSetDevice(device);
	if (err == 0) {
		err = cudaFree(0);
	}
	return copyconfCudaStatus(err);
}

static int copyconfCudaStreamCreate(unsigned long long* out) {
	cudaStream_t s = 0;
	cudaError_t err = cudaStreamCreate(&s);
	*out = (unsigned long long)s;
	return copyconfCudaStatus(err);
}

static int copyconfCudaStreamDestroy(unsigned long long s) {
	return copyconfCudaStatus(cudaStreamDestroy((cudaStream_t)s));
}

static int copyconfCudaStreamSynchronize(unsigned long long s) {
	return copyconfCudaStatus(cudaStreamSynchronize((cudaStream_t)s));
}

static int copyconfCudaMalloc(unsigned long long* out, unsigned long long size) {
	void* p = 0;
	cudaError_t err = cudaMalloc(&p, size);
	*out = (unsigned long long)p;
	return copyconfCudaStatus(err);
}

static int copyconfCudaMallocHost(unsigned long long* out, unsigned long long size) {
	void* p = 0;
	cudaError_t err = cudaMallocHost(&p, size);
	*out = (unsigned long long)p;
	return copyconfCudaStatus(err);
}

static int copyconfCudaMallocPitch(unsigned long long* out, unsigned long long* pitch, unsigned long long width, unsigned long long height) {
	void* p = 0;
	cudaError_t err = cudaMallocPitch(&p, pitch, width, height);
	*out = (unsigned long long)p;
	return copyconfCudaStatus(err);
}

static int copyconfCudaMalloc3D(unsigned long long* out, unsigned long long* pitch, unsigned long long* xsize, unsigned long long* ysize,
		unsigned long long width, unsigned long long height, unsigned long long depth) {
	struct copyconfCudaPitchedPtr p = {0};
	struct copyconfCudaExtent e = {width, height, depth};
	cudaError_t err = cudaMalloc3D(&p, e);
	*out = (unsigned long long)p.ptr;
	*pitch = p.pitch;
	*xsize = p.xsize;
	*ysize = p.ysize;
	return copyconfCudaStatus(err);
}

static int copyconfCudaFree(unsigned long long p) {
	return copyconfCudaStatus(cudaFree((void*)p));
}

static int copyconfCudaFreeHost(unsigned long long p) {
	return copyconfCudaStatus(cudaFreeHost((void*)p));
}

static int copyconfCudaMemcpy(unsigned long long dst, unsigned long long src, unsigned long long size, int kind) {
	return copyconfCudaStatus(cudaMemcpy((void*)dst, (const void*)src, size, kind));
}

static int copyconfCudaMemcpyAsync(unsigned long long dst, unsigned long long src, unsigned long long size, int kind, unsigned long long s) {
	return copyconfCudaStatus(cudaMemcpyAsync((void*)dst, (const void*)src, size, kind, (cudaStream_t)s));
}

static int copyconfCudaMemcpy2D(unsigned long long dst, unsigned long long dpitch, unsigned long long src, unsigned long long spitch,
		unsigned long long width, unsigned long long height, int kind) {
	return copyconfCudaStatus(cudaMemcpy2D((void*)dst, dpitch, (const void*)src, spitch, width, height, kind));
}

static int copyconfCudaMemcpy2DAsync(unsigned long long dst, unsigned long long dpitch, unsigned long long src, unsigned long long spitch,
		unsigned long long width, unsigned long long height, int kind, unsigned long long s) {
	return copyconfCudaStatus(cudaMemcpy2DAsync((void*)dst, dpitch, (const void*)src, spitch, width, height, kind, (cudaStream_t)s));
}

static int copyconfCudaMemcpy3D(
		unsigned long long src, unsigned long long spitch, unsigned long long sxsize, unsigned long long sysize,
		unsigned long long dst, unsigned long long dpitch, unsigned long long dxsize, unsigned long long dysize,
		unsigned long long width, unsigned long long height, unsigned long long depth,
		int kind, int async, unsigned long long s) {
	struct copyconfCudaMemcpy3DParms p = {0};
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
		return copyconfCudaStatus(cudaMemcpy3DAsync(&p, (cudaStream_t)s));
	}
	return copyconfCudaStatus(cudaMemcpy3D(&p));
}

static int copyconfCuMemcpyHtoD(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return (int)cuMemcpyHtoD_v2(dst, (const void*)src, size);
}

static int copyconfCuMemcpyHtoDAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return (int)cuMemcpyHtoDAsync_v2(dst, (const void*)src, size, (cudaStream_t)s);
}

static int copyconfCuMemcpyDtoH(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return (int)cuMemcpyDtoH_v2((void*)dst, src, size);
}

static int copyconfCuMemcpyDtoHAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return (int)cuMemcpyDtoHAsync_v2((void*)dst, src, size, (cudaStream_t)s);
}

static int copyconfCuMemcpyDtoD(unsigned long long dst, unsigned long long src, unsigned long long size) {
	return (int)cuMemcpyDtoD_v2(dst, src, size);
}

static int copyconfCuMemcpyDtoDAsync(unsigned long long dst, unsigned long long src, unsigned long long size, unsigned long long s) {
	return (int)cuMemcpyDtoDAsync_v2(dst, src, size, (cudaStream_t)s);
}
*/
import "C"

import (
	"fmt"
)

// Error is a non-zero status returned by the CUDA runtime or driver API.
type Error struct {
	Code    int
	Message string
	Driver  bool
}

func (e *Error) Error() string {
	if e.Driver {
		return fmt.Sprintf("cuda driver error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("cuda runtime error %d: %s", e.Code, e.Message)
}

// Pitched mirrors cudaPitchedPtr.
type Pitched struct {
	Ptr   uintptr
	Pitch int64
	XSize int64
	YSize int64
}

// Extent mirrors cudaExtent. Width is in bytes.
type Extent struct {
	Width, Height, Depth int64
}

func DeviceCount() (int, error) {
	var count C.int
	if err := cudaErr(C.copyconfCudaGetDeviceCount(&count)); err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetDevice selects the device for the calling OS thread and makes its
// primary context current.
func SetDevice(device int) error {
	return cudaErr(C.copyconfCudaSetDevice(C.int(device)))
}

func StreamCreate() (uintptr, error) {
	var s C.ulonglong
	if err := cudaErr(C.copyconfCudaStreamCreate(&s)); err != nil {
		return 0, err
	}
	return uintptr(s), nil
}

func StreamDestroy(s uintptr) error {
	return cudaErr(C.copyconfCudaStreamDestroy(C.ulonglong(s)))
}

func StreamSynchronize(s uintptr) error {
	return cudaErr(C.copyconfCudaStreamSynchronize(C.ulonglong(s)))
}

func Malloc(bytes int64) (uintptr, error) {
	var p C.ulonglong
	if err := cudaErr(C.copyconfCudaMalloc(&p, C.ulonglong(bytes))); err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func MallocHost(bytes int64) (uintptr, error) {
	var p C.ulonglong
	if err := cudaErr(C.copyconfCudaMallocHost(&p, C.ulonglong(bytes))); err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func MallocPitch(width, height int64) (uintptr, int64, error) {
	var p, pitch C.ulonglong
	if err := cudaErr(C.copyconfCudaMallocPitch(&p, &pitch, C.ulonglong(width), C.ulonglong(height))); err != nil {
		return 0, 0, err
	}
	return uintptr(p), int64(pitch), nil
}

func Malloc3D(e Extent) (Pitched, error) {
	var p, pitch, xsize, ysize C.ulonglong
	err := cudaErr(C.copyconfCudaMalloc3D(&p, &pitch, &xsize, &ysize,
		C.ulonglong(e.Width), C.ulonglong(e.Height), C.ulonglong(e.Depth)))
	if err != nil {
		return Pitched{}, err
	}
	return Pitched{Ptr: uintptr(p), Pitch: int64(pitch), XSize: int64(xsize), YSize: int64(ysize)}, nil
}

func Free(p uintptr) error {
	return cudaErr(C.copyconfCudaFree(C.ulonglong(p)))
}

func FreeHost(p uintptr) error {
	return cudaErr(C.copyconfCudaFreeHost(C.ulonglong(p)))
}

func Memcpy(dst, src uintptr, bytes int64, kind int) error {
	return cudaErr(C.copyconfCudaMemcpy(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.int(kind)))
}

func MemcpyAsync(dst, src uintptr, bytes int64, kind int, s uintptr) error {
	return cudaErr(C.copyconfCudaMemcpyAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.int(kind), C.ulonglong(s)))
}

func Memcpy2D(dst uintptr, dpitch int64, src uintptr, spitch int64, width, height int64, kind int) error {
	return cudaErr(C.copyconfCudaMemcpy2D(C.ulonglong(dst), C.ulonglong(dpitch), C.ulonglong(src), C.ulonglong(spitch),
		C.ulonglong(width), C.ulonglong(height), C.int(kind)))
}

func Memcpy2DAsync(dst uintptr, dpitch int64, src uintptr, spitch int64, width, height int64, kind int, s uintptr) error {
	return cudaErr(C.copyconfCudaMemcpy2DAsync(C.ulonglong(dst), C.ulonglong(dpitch), C.ulonglong(src), C.ulonglong(spitch),
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
	return cudaErr(C.copyconfCudaMemcpy3D(
		C.ulonglong(src.Ptr), C.ulonglong(src.Pitch), C.ulonglong(src.XSize), C.ulonglong(src.YSize),
		C.ulonglong(dst.Ptr), C.ulonglong(dst.Pitch), C.ulonglong(dst.XSize), C.ulonglong(dst.YSize),
		C.ulonglong(e.Width), C.ulonglong(e.Height), C.ulonglong(e.Depth),
		C.int(kind), a, C.ulonglong(s)))
}

func MemcpyHtoD(dst, src uintptr, bytes int64) error {
	return cuErr(C.copyconfCuMemcpyHtoD(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyHtoDAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return cuErr(C.copyconfCuMemcpyHtoDAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func MemcpyDtoH(dst, src uintptr, bytes int64) error {
	return cuErr(C.copyconfCuMemcpyDtoH(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyDtoHAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return cuErr(C.copyconfCuMemcpyDtoHAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func MemcpyDtoD(dst, src uintptr, bytes int64) error {
	return cuErr(C.copyconfCuMemcpyDtoD(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes)))
}

func MemcpyDtoDAsync(dst, src uintptr, bytes int64, s uintptr) error {
	return cuErr(C.copyconfCuMemcpyDtoDAsync(C.ulonglong(dst), C.ulonglong(src), C.ulonglong(bytes), C.ulonglong(s)))
}

func cudaErr(code C.int) error {
	if code == 0 {
		return nil
	}
	msg := C.GoString(C.copyconfCudaGetErrorString(code))
	return &Error{Code: int(code), Message: msg}
}

func cuErr(code C.int) error {
	if code == 0 {
		return nil
	}
	msg := C.GoString(C.copyconfCuGetErrorString(code))
	return &Error{Code: int(code), Message: msg, Driver: true}
}
