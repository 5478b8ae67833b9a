package core

// Context-only override processors.  They manipulate save options around
// the downstream chain and pass the native handle through untouched, so a
// single implementation serves every backend.

// ForceJPEG switches the output format to JPEG before the downstream chain
// runs and raises the quality to 95 afterwards.
func ForceJPEG(next Transform, _ []int) (Transform, error) {
	return func(img Image, pc *Context) (Image, error) {
		pc.Save.Format = FormatJPEG
		out, err := next(img, pc)
		if err != nil {
			return nil, err
		}
		pc.Save.Quality = 95
		return out, nil
	}, nil
}

// ForceWebP switches the output format to WEBP before the downstream chain
// runs and raises the quality to 95 afterwards.
func ForceWebP(next Transform, _ []int) (Transform, error) {
	return func(img Image, pc *Context) (Image, error) {
		pc.Save.Format = FormatWebP
		out, err := next(img, pc)
		if err != nil {
			return nil, err
		}
		pc.Save.Quality = 95
		return out, nil
	}, nil
}

// RegisterOverrides adds the context-only override processors to a backend
// registry.  Called by every backend so the override spec functions work
// regardless of the active engine.
func RegisterOverrides(r *Registry) {
	r.Register("force_jpeg", ForceJPEG)
	r.Register("force_webp", ForceWebP)
}
