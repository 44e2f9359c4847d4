//go:build !opencv

package codec

// Default returns the codec this binary was built with.
func Default() Codec {
	return Imaging{}
}
