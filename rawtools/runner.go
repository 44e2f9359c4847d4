package rawtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rawfinder/codec"
	"rawfinder/logging"
	"rawfinder/rawerr"
)

const (
	stderrTail = 512
	// How long to wait for output pipes after a canceled tool is killed.
	waitDelay = time.Second
)

// Profile is one fixed invocation of an external tool. The source path is
// appended after Args.
type Profile struct {
	Tool string
	Args []string
}

func (p Profile) String() string {
	return strings.TrimSpace(filepath.Base(p.Tool) + " " + strings.Join(p.Args, " "))
}

// Runner invokes external decoders and validates what they produce.
type Runner struct {
	// Outputs must be strictly larger than this many bytes.
	MinOutputBytes int64
	// Codec decodes stream-capture intermediates and encodes the final raster.
	Codec codec.Codec
	// JPEG quality for re-encoded stream-capture output.
	Quality int
}

// NewRunner returns a Runner using the default codec.
func NewRunner(minOutputBytes int64, quality int) *Runner {
	return &Runner{MinOutputBytes: minOutputBytes, Codec: codec.Default(), Quality: quality}
}

// Available reports whether tool resolves to an executable.
func Available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

// run executes the profile against src, sending stdout to w.
func (r *Runner) run(ctx context.Context, p Profile, src string, w io.Writer) error {
	args := make([]string, 0, len(p.Args)+1)
	args = append(args, p.Args...)
	args = append(args, src)

	cmd := exec.CommandContext(ctx, p.Tool, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return rawerr.New(rawerr.KindToolInvocationFailed, p.String(), src,
			fmt.Errorf("%w, stderr: %s", err, tail(stderr.Bytes())))
	case ctx.Err() != nil:
		return rawerr.New(rawerr.KindToolInvocationFailed, p.String(), src, ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return rawerr.New(rawerr.KindToolNotFound, p.Tool, src, err)
	default:
		return rawerr.New(rawerr.KindToolInvocationFailed, p.String(), src, err)
	}
}

// WriteFile runs the profile with stdout redirected to dest and accepts the
// result only when dest is larger than MinOutputBytes and decodes as a
// raster. dest is removed on failure.
func (r *Runner) WriteFile(ctx context.Context, p Profile, src, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return rawerr.New(rawerr.KindIO, "create output", dest, err)
	}

	runErr := r.run(ctx, p, src, f)
	closeErr := f.Close()
	if runErr != nil {
		os.Remove(dest)
		return runErr
	}
	if closeErr != nil {
		os.Remove(dest)
		return rawerr.New(rawerr.KindIO, "close output", dest, closeErr)
	}

	return r.Validate(p.String(), dest)
}

// CaptureStream runs the profile with stdout written to dest+"."+ext, then
// decodes that intermediate and re-encodes it to dest. The intermediate is
// removed on every path.
func (r *Runner) CaptureStream(ctx context.Context, p Profile, src, dest, ext string) error {
	intermediate := dest + "." + ext
	defer os.Remove(intermediate)

	f, err := os.Create(intermediate)
	if err != nil {
		return rawerr.New(rawerr.KindIO, "create intermediate", intermediate, err)
	}
	runErr := r.run(ctx, p, src, f)
	closeErr := f.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return rawerr.New(rawerr.KindIO, "close intermediate", intermediate, closeErr)
	}

	return r.Reencode(p.String(), intermediate, dest)
}

// Sidecar runs a tool that writes its extracted thumbnail next to its input
// instead of to stdout, then moves the thumbnail to dest. The tool is given
// a link to src inside a per-call work directory beside dest, so sidecars
// never land next to src and the work directory is all that is removed.
func (r *Runner) Sidecar(ctx context.Context, p Profile, src, dest string) error {
	work, err := os.MkdirTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".sidecar-")
	if err != nil {
		return rawerr.New(rawerr.KindIO, "create work directory", dest, err)
	}
	defer os.RemoveAll(work)

	input, err := stageInput(src, work)
	if err != nil {
		return rawerr.New(rawerr.KindIO, "stage input", src, err)
	}

	if err := r.run(ctx, p, input, io.Discard); err != nil {
		return err
	}

	for _, c := range SidecarNames(input) {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		if err := os.Rename(c, dest); err != nil {
			return rawerr.New(rawerr.KindIO, "move sidecar", c, err)
		}
		return r.Validate(p.String(), dest)
	}
	return rawerr.New(rawerr.KindOutputTooSmall, p.String(), src, errors.New("no sidecar thumbnail written"))
}

// stageInput makes src available under its own name inside dir, as a
// symlink where the filesystem allows it and as a copy otherwise.
func stageInput(src, dir string) (string, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	link := filepath.Join(dir, filepath.Base(src))
	if err := os.Symlink(abs, link); err == nil {
		return link, nil
	}
	return link, copyFile(abs, link)
}

// SidecarNames lists the thumbnail paths dcraw-style tools write for src:
// "<dir>/thumb_<stem>.jpg" and "<src>.thumb.jpg".
func SidecarNames(src string) []string {
	dir, base := filepath.Split(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return []string{
		filepath.Join(dir, "thumb_"+stem+".jpg"),
		src + ".thumb.jpg",
	}
}

// Validate checks that path exceeds MinOutputBytes and is a decodable
// raster, removing it otherwise.
func (r *Runner) Validate(op, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return rawerr.New(rawerr.KindOutputTooSmall, op, path, err)
	}
	if info.Size() <= r.MinOutputBytes {
		os.Remove(path)
		return rawerr.New(rawerr.KindOutputTooSmall, op, path,
			fmt.Errorf("%d bytes, need more than %d", info.Size(), r.MinOutputBytes))
	}
	if _, _, err := codec.DecodeConfig(path); err != nil {
		os.Remove(path)
		return rawerr.New(rawerr.KindOutputUndecodable, op, path, err)
	}
	return nil
}

// Reencode decodes the raster at src and writes it to dest at r.Quality.
func (r *Runner) Reencode(op, src, dest string) error {
	img, err := r.Codec.Decode(src)
	if err != nil {
		return rawerr.New(rawerr.KindOutputUndecodable, op, src, err)
	}
	if err := r.Codec.Encode(img, dest, r.Quality); err != nil {
		os.Remove(dest)
		return rawerr.New(rawerr.KindIO, "encode", dest, err)
	}
	logging.DebugLog("%s: re-encoded %s to %s with %s codec", op, filepath.Base(src), dest, r.Codec.Name())
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}
	return string(b)
}
