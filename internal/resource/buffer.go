package resource

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("resource: buffer has been destroyed")

	// ErrInvalidBufferSize is returned when a buffer size is zero or does
	// not match the layout it is used with.
	ErrInvalidBufferSize = errors.New("resource: invalid buffer size")

	// ErrBufferAlreadyMapped is returned when mapping a buffer that is
	// already mapped or has a map pending.
	ErrBufferAlreadyMapped = errors.New("resource: buffer is already mapped or mapping is pending")

	// ErrBufferNotMapped is returned when reading an unmapped buffer.
	ErrBufferNotMapped = errors.New("resource: buffer is not mapped")

	// ErrBufferMapPending is returned when reading a buffer whose map has
	// not completed.
	ErrBufferMapPending = errors.New("resource: buffer mapping is pending")

	// ErrInvalidMapMode is returned for an empty map mode.
	ErrInvalidMapMode = errors.New("resource: invalid map mode")

	// ErrInvalidMapRange is returned when the range is out of bounds or
	// misaligned.
	ErrInvalidMapRange = errors.New("resource: map range out of bounds")

	// ErrMapUsageMismatch is returned when the map mode is not allowed by the
	// buffer usage.
	ErrMapUsageMismatch = errors.New("resource: map mode does not match buffer usage")

	// ErrCallbackNil is returned when MapAsync is called without a callback.
	ErrCallbackNil = errors.New("resource: map callback is nil")

	// ErrNoSubmission is returned when a read mapping is requested before
	// any submission writing the buffer was tracked.
	ErrNoSubmission = errors.New("resource: no submission writes the buffer")
)

// mapAlignment is the required offset alignment for map requests.
const mapAlignment uint64 = 8

// MapState is the mapping state of a buffer.
type MapState int

const (
	MapStateUnmapped MapState = iota
	MapStatePending
	MapStateMapped
)

// String returns the state name.
func (s MapState) String() string {
	switch s {
	case MapStateUnmapped:
		return "Unmapped"
	case MapStatePending:
		return "Pending"
	case MapStateMapped:
		return "Mapped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MapStatus is the result delivered to a map callback.
type MapStatus int

const (
	MapStatusSuccess MapStatus = iota
	MapStatusValidationError
	MapStatusUnknown
	MapStatusDeviceLost
	MapStatusDestroyedBeforeCallback
	MapStatusUnmappedBeforeCallback
	MapStatusMappingAlreadyPending
	MapStatusOffsetOutOfRange
	MapStatusSizeOutOfRange
)

// String returns the status name.
func (s MapStatus) String() string {
	switch s {
	case MapStatusSuccess:
		return "Success"
	case MapStatusValidationError:
		return "ValidationError"
	case MapStatusUnknown:
		return "Unknown"
	case MapStatusDeviceLost:
		return "DeviceLost"
	case MapStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case MapStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	case MapStatusMappingAlreadyPending:
		return "MappingAlreadyPending"
	case MapStatusOffsetOutOfRange:
		return "OffsetOutOfRange"
	case MapStatusSizeOutOfRange:
		return "SizeOutOfRange"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SubmissionTracker reports queue progress. hal.Queue implements it.
type SubmissionTracker interface {
	PollCompleted() uint64
}

// BufferMapper maps buffer memory into the host address space. hal.Device
// implements it.
type BufferMapper interface {
	MapBuffer(buffer hal.Buffer, offset, size uint64) (hal.BufferMapping, error)
	UnmapBuffer(buffer hal.Buffer) error
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// Buffer is a GPU buffer with host mapping support.
//
// Lifecycle of a readback:
//  1. Track the submission that writes the buffer
//  2. MapAsync with MapModeRead
//  3. Poll until the callback has run
//  4. MappedRange to read
//  5. Unmap
//  6. Destroy
//
// Buffer is safe for concurrent use.
type Buffer struct {
	mu sync.Mutex

	raw     hal.Buffer
	desc    BufferDescriptor
	tracker SubmissionTracker
	mapper  BufferMapper
	release func(hal.Buffer)

	// submission is the queue index whose completion makes the contents
	// visible to the host. Zero means nothing was submitted.
	submission uint64

	mapState  MapState
	mapOffset uint64
	mapSize   uint64
	mapped    []byte
	hostMap   bool
	callback  func(MapStatus)

	destroyed bool
}

func newBuffer(raw hal.Buffer, desc BufferDescriptor, tracker SubmissionTracker, mapper BufferMapper, release func(hal.Buffer)) *Buffer {
	return &Buffer{
		raw:     raw,
		desc:    desc,
		tracker: tracker,
		mapper:  mapper,
		release: release,
	}
}

// Label returns the debug label.
func (b *Buffer) Label() string { return b.desc.Label }

// Size returns the buffer capacity in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Usage returns the usage flags.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.desc.Usage }

// Raw returns the underlying handle, or nil once destroyed.
func (b *Buffer) Raw() hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil
	}
	return b.raw
}

// MapState returns the current mapping state.
func (b *Buffer) MapState() MapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapState
}

// Track records the queue submission whose completion makes the buffer
// contents available to the host.
func (b *Buffer) Track(submission uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submission = submission
}

// MapAsync requests a host mapping of [offset, offset+size). The callback
// runs exactly once, from MapAsync itself on validation failure or from
// Poll or Unmap otherwise. A buffer can only be mapped after the submission
// that writes it has been tracked.
func (b *Buffer) MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(MapStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	if callback == nil {
		return ErrCallbackNil
	}
	if b.mapState != MapStateUnmapped {
		callback(MapStatusMappingAlreadyPending)
		return ErrBufferAlreadyMapped
	}

	if mode == 0 {
		callback(MapStatusValidationError)
		return ErrInvalidMapMode
	}
	if mode == gputypes.MapModeRead && !b.desc.Usage.Contains(gputypes.BufferUsageMapRead) {
		callback(MapStatusValidationError)
		return fmt.Errorf("%w: buffer does not have MapRead usage", ErrMapUsageMismatch)
	}
	if mode == gputypes.MapModeWrite && !b.desc.Usage.Contains(gputypes.BufferUsageMapWrite) {
		callback(MapStatusValidationError)
		return fmt.Errorf("%w: buffer does not have MapWrite usage", ErrMapUsageMismatch)
	}
	if mode == gputypes.MapModeRead && b.submission == 0 {
		callback(MapStatusValidationError)
		return ErrNoSubmission
	}

	if offset > b.desc.Size {
		callback(MapStatusOffsetOutOfRange)
		return fmt.Errorf("%w: offset %d > buffer size %d", ErrInvalidMapRange, offset, b.desc.Size)
	}
	if offset+size > b.desc.Size {
		callback(MapStatusSizeOutOfRange)
		return fmt.Errorf("%w: offset %d + size %d > buffer size %d", ErrInvalidMapRange, offset, size, b.desc.Size)
	}
	if offset%mapAlignment != 0 {
		callback(MapStatusValidationError)
		return fmt.Errorf("%w: offset %d must be %d-byte aligned", ErrInvalidMapRange, offset, mapAlignment)
	}

	b.mapState = MapStatePending
	b.mapOffset = offset
	b.mapSize = size
	b.callback = callback
	return nil
}

// Poll advances a pending map without blocking. Once the queue has
// completed the tracked submission the range is mapped and the callback
// runs. It returns true once the map has completed, successfully or not,
// and false while the device is still busy.
func (b *Buffer) Poll() bool {
	b.mu.Lock()
	if b.mapState != MapStatePending {
		b.mu.Unlock()
		return true
	}
	if b.destroyed {
		b.finishLocked(MapStatusDestroyedBeforeCallback, nil)
		return true
	}
	if b.tracker.PollCompleted() < b.submission {
		b.mu.Unlock()
		return false
	}

	if b.mapSize == 0 {
		b.finishLocked(MapStatusSuccess, []byte{})
		return true
	}
	m, err := b.mapper.MapBuffer(b.raw, b.mapOffset, b.mapSize)
	if err != nil || m.Ptr == nil {
		b.finishLocked(MapStatusUnknown, nil)
		return true
	}
	b.hostMap = true
	b.finishLocked(MapStatusSuccess, unsafe.Slice((*byte)(m.Ptr), b.mapSize))
	return true
}

// MappedRange returns the mapped bytes in [offset, offset+size). The slice
// is only valid until Unmap.
func (b *Buffer) MappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	switch b.mapState {
	case MapStatePending:
		return nil, ErrBufferMapPending
	case MapStateUnmapped:
		return nil, ErrBufferNotMapped
	}
	if offset < b.mapOffset || offset+size > b.mapOffset+b.mapSize {
		return nil, fmt.Errorf("%w: [%d, %d) outside mapped [%d, %d)",
			ErrInvalidMapRange, offset, offset+size, b.mapOffset, b.mapOffset+b.mapSize)
	}
	rel := offset - b.mapOffset
	return b.mapped[rel : rel+size : rel+size], nil
}

// Unmap releases the mapped view. A pending map is cancelled and its
// callback receives MapStatusUnmappedBeforeCallback. Unmapping an unmapped
// buffer is a no-op.
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrBufferDestroyed
	}
	if b.mapState == MapStatePending {
		b.finishLocked(MapStatusUnmappedBeforeCallback, nil)
		return nil
	}
	err := b.unmapLocked()
	b.mu.Unlock()
	return err
}

func (b *Buffer) unmapLocked() error {
	b.mapState = MapStateUnmapped
	b.mapped = nil
	if !b.hostMap {
		return nil
	}
	b.hostMap = false
	return b.mapper.UnmapBuffer(b.raw)
}

// Destroy releases the buffer. A pending map is cancelled first. Destroy is
// idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	if b.mapState == MapStatePending {
		b.finishLocked(MapStatusDestroyedBeforeCallback, nil)
		b.mu.Lock()
		if b.destroyed {
			b.mu.Unlock()
			return
		}
	}
	_ = b.unmapLocked()
	b.destroyed = true
	raw := b.raw
	b.raw = nil
	b.mu.Unlock()

	if raw != nil && b.release != nil {
		b.release(raw)
	}
}
