package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/xid"

	"svgkit/internal/domain"
	u "svgkit/internal/logging"
)

// Cache stores encoded PNGs. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Result describes a finished conversion.
type Result struct {
	RunID   string
	Phase   Phase
	Width   int
	Height  int
	Bytes   int
	Cached  bool
	Elapsed time.Duration
}

// Driver converts exactly one document to one PNG. A Driver is single-use.
type Driver struct {
	Engine  Engine
	Settler Settler
	// Cache is optional.
	Cache Cache
	// Timeout bounds Run. Zero means no bound.
	Timeout time.Duration
	// Observer, if set, is called on every phase transition.
	Observer func(from, to Phase)

	phase   Phase
	history []Phase
	used    bool
}

var errDriverReused = errors.New("render: driver already used")

// Phase returns the current phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

// History returns every phase entered so far, starting with PhaseIdle.
func (d *Driver) History() []Phase {
	out := make([]Phase, 0, len(d.history)+1)
	out = append(out, PhaseIdle)
	return append(out, d.history...)
}

func (d *Driver) transition(to Phase) {
	from := d.phase
	if !canTransition(from, to) {
		panic(fmt.Sprintf("render: invalid transition %s -> %s", from, to))
	}
	d.phase = to
	d.history = append(d.history, to)
	u.Debug("Phase transition", "from", from.String(), "to", to.String())
	if d.Observer != nil {
		d.Observer(from, to)
	}
}

// Run performs the conversion. It returns once the destination has been
// written or a failure has been determined; it never exits the process.
func (d *Driver) Run(ctx context.Context, req domain.Request) (*Result, error) {
	if d.used {
		return nil, errDriverReused
	}
	d.used = true

	res := &Result{RunID: xid.New().String(), Width: req.Width, Height: req.Height()}
	start := time.Now()

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	err := d.run(ctx, req, res)
	res.Elapsed = time.Since(start)

	if err != nil {
		failedIn := d.phase
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		d.transition(PhaseFailed)
		res.Phase = d.phase
		u.Error("Conversion failed", "run_id", res.RunID, "phase", failedIn.String(),
			"kind", string(domain.KindOf(err)), "error", err)
		return res, err
	}

	d.transition(PhaseDone)
	res.Phase = d.phase
	u.Info("Conversion finished", "run_id", res.RunID, "source", req.Source,
		"destination", req.Destination, "width", req.Width, "bytes", res.Bytes,
		"cached", res.Cached, "elapsed_ms", res.Elapsed.Milliseconds())
	return res, nil
}

func (d *Driver) run(ctx context.Context, req domain.Request, res *Result) error {
	if d.Engine == nil {
		return fmt.Errorf("%w: no engine configured", domain.ErrEngineUnavailable)
	}
	if err := domain.CheckWidth(req.Width); err != nil {
		return err
	}
	if err := checkSource(req.Source); err != nil {
		return err
	}
	if err := checkDestination(req.Destination); err != nil {
		return err
	}

	var source []byte
	if d.Cache != nil {
		var err error
		source, err = os.ReadFile(req.Source)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err)
		}
		cacheKey := CacheKey(source, req.Width, renderedBy(d.Engine))
		if cached, err := d.Cache.Get(ctx, cacheKey); err != nil {
			u.Warn("Render cache read failed", "error", err)
		} else if cached != nil {
			u.Info("Render cache hit", "key", cacheKey)
			d.transition(PhaseEncoding)
			if err := WriteFileAtomic(req.Destination, cached); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrEncode, err)
			}
			res.Bytes = len(cached)
			res.Cached = true
			return nil
		}
	}

	surface := SquareSurface(req.Width)
	doc := Document{Path: req.Source, Root: filepath.Dir(req.Source)}

	d.transition(PhaseLoading)
	if err := d.Engine.Open(ctx, surface); err != nil {
		return ensure(err, domain.ErrEngineUnavailable)
	}
	defer func() {
		if err := d.Engine.Close(); err != nil {
			u.Warn("Engine close failed", "engine", d.Engine.Name(), "error", err)
		}
	}()
	if err := d.Engine.Load(ctx, doc); err != nil {
		return ensure(err, domain.ErrLoad)
	}

	d.transition(PhaseSettling)
	if d.Settler != nil {
		if err := d.Settler.Settle(ctx, d.Engine); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return ensure(err, domain.ErrCapture)
		}
	}

	d.transition(PhaseCapturing)
	img, err := d.Engine.Snapshot(ctx)
	if err != nil {
		return ensure(err, domain.ErrCapture)
	}
	if img == nil {
		return fmt.Errorf("%w: engine returned no image", domain.ErrCapture)
	}

	d.transition(PhaseEncoding)
	data, err := EncodePNG(normalize(img, surface.Width, surface.Height))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}
	if err := WriteFileAtomic(req.Destination, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}
	res.Bytes = len(data)

	if d.Cache != nil {
		// Keyed on the engine that actually painted the image.
		cacheKey := CacheKey(source, req.Width, renderedBy(d.Engine))
		if err := d.Cache.Set(ctx, cacheKey, data); err != nil {
			u.Warn("Render cache write failed", "error", err)
		}
	}
	return nil
}

// ensure wraps err with sentinel unless it already carries it.
func ensure(err error, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func checkSource(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", domain.ErrSourceUnreadable, path)
	}
	return nil
}

func checkDestination(path string) error {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrDestinationUnwritable, path)
	}
	dir := filepath.Dir(path)
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDestinationUnwritable, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrDestinationUnwritable, dir)
	}
	return nil
}

// CacheKey identifies a rendering of doc at width by engine. Sibling
// resources the document references are not part of the key.
func CacheKey(doc []byte, width int, engine string) string {
	h := sha256.New()
	h.Write(doc)
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{0})
	h.Write([]byte(engine))
	return "svgcache:" + hex.EncodeToString(h.Sum(nil))
}
