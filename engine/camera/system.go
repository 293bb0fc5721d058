package camera

// UpdateSystem runs once per frame before views are captured. It matches every camera's aspect
// ratio to the render target size and recomputes its matrices. A zero-sized target keeps the
// previous aspect ratio.
//
// Parameters:
//   - width: the render target width in pixels
//   - height: the render target height in pixels
//   - cameras: the cameras to update
func UpdateSystem(width, height uint32, cameras ...Camera) {
	for _, c := range cameras {
		if c == nil {
			continue
		}
		if width > 0 && height > 0 {
			c.SetAspect(float32(width) / float32(height))
		}
		c.Update()
	}
}
