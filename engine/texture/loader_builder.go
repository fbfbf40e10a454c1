package texture

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithUploader is an option builder that sets where decoded textures are uploaded. Without an
// uploader, decoded textures become resident in place, which suits headless tools.
//
// Parameters:
//   - u: the uploader, normally the renderer.Renderer
//
// Returns:
//   - LoaderBuilderOption: a function that applies the uploader option to a loader
func WithUploader(u Uploader) LoaderBuilderOption {
	return func(l *loader) {
		l.uploader = u
	}
}

// WithDecodeWorkers is an option builder that sets the size of the decode worker pool. Values
// below 1 are ignored.
func WithDecodeWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n >= 1 {
			l.workers = n
		}
	}
}
