// Package upload is the booth plugin that publishes the last picture on
// Imgur and exposes its link to the application.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/plugin"
	"github.com/cjeanneret/BoothGo/internal/upload/imgur"
)

// Environment variables holding the Imgur application credentials.
const (
	EnvClientID     = "IMGUR_CLIENT_ID"
	EnvClientSecret = "IMGUR_CLIENT_SECRET"
)

// Name is the plugin name.
const Name = "imgur-upload"

var (
	// ErrMissingCredentials means the Imgur client id or secret is not set.
	ErrMissingCredentials = errors.New("imgur credentials not set")
	// ErrNoPicture means the target state was entered before any picture was saved.
	ErrNoPicture = errors.New("no picture to upload")
	// ErrNotStarted means a state hook ran before OnStartup.
	ErrNotStarted = errors.New("upload plugin not started")
)

// Uploader is the hosting-service call used by the plugin.
type Uploader interface {
	UploadFromFile(ctx context.Context, r io.Reader, config map[string]string, anon bool) (*imgur.Image, error)
}

// ClientFactory builds the hosting-service client from credentials.
type ClientFactory func(clientID, clientSecret string) Uploader

// Record associates a local picture with its public link.
type Record struct {
	File string
	URL  string
}

// Credentials are the Imgur application id and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CredentialsFromEnv reads the credentials with lookup (os.LookupEnv in
// production). Both values must be set and non-empty.
func CredentialsFromEnv(lookup func(string) (string, bool)) (Credentials, error) {
	id, _ := lookup(EnvClientID)
	secret, _ := lookup(EnvClientSecret)
	var missing []string
	if id == "" {
		missing = append(missing, EnvClientID)
	}
	if secret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMissingCredentials, missing)
	}
	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

// Plugin uploads the previous picture when the booth enters the target state.
type Plugin struct {
	creds     Credentials
	state     string
	fs        afero.Fs
	newClient ClientFactory

	client  Uploader
	records []Record
}

// Option customizes the plugin.
type Option func(*Plugin)

// WithState sets the state that triggers the upload (default "print").
func WithState(state string) Option {
	return func(p *Plugin) {
		p.state = state
	}
}

// WithFs sets the filesystem pictures are read from (default OS).
func WithFs(fs afero.Fs) Option {
	return func(p *Plugin) {
		p.fs = fs
	}
}

// WithClientFactory replaces the Imgur client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Plugin) {
		p.newClient = f
	}
}

// New checks the credentials and returns the plugin.
func New(clientID, clientSecret string, opts ...Option) (*Plugin, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	p := &Plugin{
		creds: Credentials{ClientID: clientID, ClientSecret: clientSecret},
		state: plugin.StatePrint,
		fs:    afero.NewOsFs(),
		newClient: func(id, secret string) Uploader {
			return imgur.NewClient(id, secret)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the plugin name used for registration.
func (p *Plugin) Name() string { return Name }

// OnStartup creates the Imgur client.
func (p *Plugin) OnStartup(ctx context.Context, app *plugin.App) error {
	p.client = p.newClient(p.creds.ClientID, p.creds.ClientSecret)
	debug.Verbose("Upload: Imgur client ready (trigger state %q)", p.state)
	return nil
}

// OnStateEnter uploads the previous picture when state is the target state.
func (p *Plugin) OnStateEnter(ctx context.Context, state string, app *plugin.App) error {
	if state != p.state {
		return nil
	}
	if p.client == nil {
		return ErrNotStarted
	}
	path := app.PreviousPictureFile()
	if path == "" {
		return ErrNoPicture
	}

	rec, err := p.upload(ctx, path)
	if err != nil {
		return err
	}
	app.SetPreviousPictureURL(rec.URL)
	p.records = append(p.records, rec)
	debug.Uploaded(filepath.Base(path), rec.URL)
	return nil
}

func (p *Plugin) upload(ctx context.Context, path string) (Record, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	img, err := p.client.UploadFromFile(ctx, f, nil, true)
	if err != nil {
		return Record{}, err
	}
	return Record{File: path, URL: img.Link}, nil
}

// OnCleanup does nothing.
func (p *Plugin) OnCleanup(ctx context.Context, app *plugin.App) error {
	return nil
}

// Records returns the uploads done so far, oldest first.
func (p *Plugin) Records() []Record {
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}
