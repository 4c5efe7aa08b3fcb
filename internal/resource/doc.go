// Package resource creates the textures, samplers and buffers of a render
// cycle and enforces the relationships between their parameters: mip level
// counts derived from extents, sampler filters compatible with mip-mapped
// textures, and staging buffers sized exactly for a readback.
//
// The staging Buffer implements the host side of buffer mapping. A map
// request moves it to Pending; polling waits on the submission fence that
// produced its contents and, once the device is done, copies the buffer into
// host memory and moves it to Mapped. Unmap releases the view.
package resource
