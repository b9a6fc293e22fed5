package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/basler-lab/pylonpanel/capture"
	"github.com/basler-lab/pylonpanel/display"
	"github.com/basler-lab/pylonpanel/imgrec"
	"github.com/basler-lab/pylonpanel/panel"
	"github.com/basler-lab/pylonpanel/panelhttp"
	"github.com/basler-lab/pylonpanel/pylon"
	"github.com/basler-lab/pylonpanel/server/middleware/locker"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"
	"goji.io"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "pylon-panel.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`

	// Format selects the output image format, png jpg or fits
	Format string `yaml:"Format"`

	// Enabled turns recording on
	Enabled bool `yaml:"Enabled"`
}

type config struct {
	Addr          string   `yaml:"Addr"`
	Root          string   `yaml:"Root"`
	Camera        string   `yaml:"Camera"`
	Panel         string   `yaml:"Panel"`
	WindowName    string   `yaml:"WindowName"`
	WindowWidth   int      `yaml:"WindowWidth"`
	WindowHeight  int      `yaml:"WindowHeight"`
	MaxDisplayFPS float64  `yaml:"MaxDisplayFPS"`
	Recorder      recorder `yaml:"Recorder"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:       ":8000",
		Root:       "/",
		Camera:     "mock",
		Panel:      "panel.yml",
		WindowName: "pylon-panel",
		Recorder:   recorder{Prefix: "frame", Format: "png"}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `pylon-panel exposes interactive control of Basler cameras over HTTP.
A panel file declares which camera features to expose, their bounds,
and how they depend on one another; the server renders it as a set of
HTTP controls plus single and continuous capture actions.

Usage:
	pylon-panel <command>

Commands:
	run
	list
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `pylon-panel is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf
generates the configuration file with the default values.

Camera 'mock' runs against a built-in software camera, useful on a bench
without hardware or for testing panel files.  Any other value is taken as
the host:port of a camera gateway to connect to.

The Panel key points to the panel declaration file.  Each feature in it
names a camera parameter and the control kind to render; bounds you give
are clamped to what the camera reports, never widened.

The command list prints attached Basler USB devices.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("pylon-panel version %v\n", Version)
}

func list() {
	devs, err := pylon.Discover()
	if err != nil {
		log.Printf("discovery finished with error: %v", err)
	}
	if len(devs) == 0 {
		fmt.Println("no Basler USB devices found")
		return
	}
	for _, d := range devs {
		fmt.Println(d)
	}
}

// connect opens the configured camera, spinning while the gateway
// handshake and backoff run
func connect(cfg config) (pylon.Camera, error) {
	if cfg.Camera == "mock" {
		log.Println("using the built-in mock camera")
		return pylon.NewMockCamera(), nil
	}
	spinCfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " connecting to " + cfg.Camera,
		SuffixAutoColon: true,
		StopCharacter:   "OK",
	}
	spinner, err := yacspin.New(spinCfg)
	if err != nil {
		return nil, err
	}
	spinner.Start()
	cam := pylon.NewRemoteCamera(cfg.Camera)
	err = cam.Open()
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	return cam, nil
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)

	panelCfg, err := panel.LoadConfig(cfg.Panel)
	if err != nil {
		log.Fatalf("panel file %s: %v", cfg.Panel, err)
	}
	cam, err := connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cam.Close()

	p, err := panel.Interpret(panelCfg, cam)
	if err != nil {
		log.Fatalf("panel file %s: %v", cfg.Panel, err)
	}
	log.Printf("panel bound to %d controls", len(p.Controls()))

	rec := &imgrec.Recorder{
		Root:    cfg.Recorder.Root,
		Prefix:  cfg.Recorder.Prefix,
		Format:  cfg.Recorder.Format,
		Enabled: cfg.Recorder.Enabled,
	}
	sess := &capture.Session{
		Cam:           cam,
		Panel:         p,
		Surface:       &display.Window{},
		Recorder:      rec,
		WindowName:    cfg.WindowName,
		WindowWidth:   cfg.WindowWidth,
		WindowHeight:  cfg.WindowHeight,
		MaxDisplayFPS: cfg.MaxDisplayFPS,
	}
	lock := locker.New()
	h := panelhttp.NewHTTPPanel(p, sess, lock)
	locker.Inject(h, lock)

	mount := submuxPath(cfg.Root)
	rootMux := buildRoutes(h, lock, mount)
	log.Println("now listening for requests at", cfg.Addr+mount)
	log.Fatal(http.ListenAndServe(cfg.Addr, rootMux))
}

// buildRoutes assembles the HTTP surface: the panel routes behind the
// capture lock, mounted on a chi root with request logging.  The lock
// middleware is what bounces control writes with 423 while a capture
// loop owns the camera.
func buildRoutes(h *panelhttp.HTTPPanel, lock *locker.Locker, mount string) *chi.Mux {
	sub := goji.NewMux()
	sub.Use(lock.Check)
	h.RT().Bind(sub)

	rootMux := chi.NewRouter()
	rootMux.Use(middleware.Logger)
	if mount == "/" {
		rootMux.Mount("/", sub)
	} else {
		rootMux.Mount(mount, http.StripPrefix(mount, sub))
	}
	return rootMux
}

// submuxPath normalizes a mount point to have a leading and no trailing
// slash
func submuxPath(s string) string {
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "list":
		list()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
