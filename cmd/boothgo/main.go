package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/afero"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/button"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/i18n"
	"github.com/cjeanneret/BoothGo/internal/logic/booth"
	"github.com/cjeanneret/BoothGo/internal/overlay"
	"github.com/cjeanneret/BoothGo/internal/plugin"
	"github.com/cjeanneret/BoothGo/internal/upload"
	"github.com/cjeanneret/BoothGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	effect := flag.String("effect", "", "override image effect applied at capture")
	timeout := flag.Int("timeout", 0, fmt.Sprintf("override countdown length in seconds (1-%d)", web.MaxTimeoutS))
	alpha := flag.Int("alpha", 0, "override overlay opacity (1-255)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Zero values mean "use config default"
	if err := validateCLIOverrides(*effect, *timeout, *alpha); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, web.Overrides{Effect: *effect, TimeoutS: *timeout})
	if *alpha > 0 {
		cfg.Preview.Alpha = *alpha
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	if err := run(ctx, cfg, webPort.port()); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("boothgo: %v", err)
	}
}

// run wires the booth together and serves sessions until ctx is done
// (web mode) or one session completes (button mode).
func run(ctx context.Context, cfg *config.Config, port int) error {
	// Credentials are checked before any plugin hook can run.
	var creds upload.Credentials
	if cfg.Upload.Enabled {
		var err error
		creds, err = upload.CredentialsFromEnv(os.LookupEnv)
		if err != nil {
			return err
		}
	}

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			debug.Error(fmt.Errorf("close GPIO driver: %w", err))
		}
	}()

	debug.Step(2, "Initializing camera")
	handle, err := newCameraFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.PrintStruct("Camera settings", cfg.CameraSettings())

	tr, err := i18n.New(cfg.Defaults.Language, cfg.Translations)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	debug.Value("Language", tr.Language())

	cam := camera.NewPiCamera(handle, overlay.NewBuilder(), tr, cfg.CameraSettings())
	if err := cam.Initialize(); err != nil {
		return fmt.Errorf("configure camera: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			debug.Error(fmt.Errorf("close camera: %w", err))
		}
	}()

	debug.Step(3, "Starting plugins")
	app := &plugin.App{}
	plugins := plugin.NewManager()
	if cfg.Upload.Enabled {
		up, err := upload.New(creds.ClientID, creds.ClientSecret, upload.WithState(cfg.Upload.State))
		if err != nil {
			return err
		}
		if err := plugins.Register(up); err != nil {
			return err
		}
		debug.Value("Upload state", cfg.Upload.State)
	}
	if err := plugins.Startup(ctx, app); err != nil {
		return err
	}
	defer func() {
		if err := plugins.Cleanup(context.Background(), app); err != nil {
			debug.Error(fmt.Errorf("plugin cleanup: %w", err))
		}
	}()

	seq := booth.NewSequence(cam, plugins, app, afero.NewOsFs(), cfg.Picture.OutputDir)
	runShot := func(ctx context.Context, overrides web.Overrides) error {
		return executeShot(ctx, cfg, seq, tr, app, overrides)
	}

	if port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		latest := func() web.Picture {
			return web.Picture{File: app.PreviousPictureFile(), URL: app.PreviousPictureURL()}
		}
		srv, err := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, runShot, latest, formDefaults(cfg))
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	}

	if cfg.Trigger.Pin > 0 {
		btn, err := button.New(gpioDriver, cfg.Trigger.Pin, cfg.TriggerPoll(), cfg.TriggerDebounce())
		if err != nil {
			return fmt.Errorf("init trigger button: %w", err)
		}
		debug.Info("%s", tr.Text(i18n.KeyIntro))
		if err := btn.WaitPress(ctx); err != nil {
			return err
		}
	}
	return runShot(ctx, web.Overrides{})
}

// executeShot runs one session with overrides applied to the base config.
func executeShot(ctx context.Context, cfg *config.Config, seq *booth.Sequence, tr *i18n.Translator, app *plugin.App, overrides web.Overrides) error {
	params := shotParams(cfg, overrides)
	debug.PrintStruct("Shot params", params)

	if _, err := seq.RunShot(ctx, params); err != nil {
		return err
	}
	if url := app.PreviousPictureURL(); url != "" {
		debug.Info("%s: %s", tr.Text(i18n.KeyUploaded), url)
	}
	return nil
}

// shotParams builds session parameters from cfg. Zero override values
// keep the configured default.
func shotParams(cfg *config.Config, overrides web.Overrides) booth.ShotParams {
	p := booth.ShotParams{
		Window:    cfg.Preview.Window,
		Flip:      cfg.Preview.Flip,
		Countdown: cfg.Preview.Countdown,
		Timeout:   cfg.Preview.TimeoutS,
		Alpha:     cfg.OverlayAlpha(),
		Effect:    cfg.Preview.Effect,
		Quality:   cfg.Picture.JPEGQuality,
	}
	if overrides.Effect != "" {
		p.Effect = overrides.Effect
	}
	if overrides.TimeoutS > 0 {
		p.Timeout = overrides.TimeoutS
	}
	if overrides.Countdown != nil {
		p.Countdown = *overrides.Countdown
	}
	return p
}

func formDefaults(cfg *config.Config) web.FormConfig {
	return web.FormConfig{
		Effect:    cfg.Preview.Effect,
		TimeoutS:  cfg.Preview.TimeoutS,
		Countdown: cfg.Preview.Countdown,
		Effects:   camera.Effects,
	}
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
func validateCLIOverrides(effect string, timeout, alpha int) error {
	if err := web.ValidateOverrides(web.Overrides{Effect: effect, TimeoutS: timeout}); err != nil {
		return err
	}
	if alpha < 0 || alpha > 255 {
		return fmt.Errorf("alpha must be between 1 and 255, got %d", alpha)
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, overrides web.Overrides) {
	if overrides.Effect != "" {
		cfg.Preview.Effect = overrides.Effect
	}
	if overrides.TimeoutS > 0 {
		cfg.Preview.TimeoutS = overrides.TimeoutS
	}
	if overrides.Countdown != nil {
		cfg.Preview.Countdown = *overrides.Countdown
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }

// newCameraFromConfig selects a camera handle based on configuration.
// Real sensors are provided by an external SDK binding implementing
// camera.Handle; the built-in choice is the mock.
func newCameraFromConfig(cfg *config.Config) (camera.Handle, error) {
	switch cfg.Camera.Type {
	case "mock":
		return camera.NewMockHandle(image.Pt(cfg.Camera.WidthPx, cfg.Camera.HeightPx), cfg.Camera.HFlip), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}
