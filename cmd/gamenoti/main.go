package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/gamenoti/internal/profile"
)

var version = "dev"

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gamenoti",
		Short: "Extract notification times from game screenshots",
		Long: `gamenoti reads countdowns and clock times ("2시간 30분 남음", "오후 3시 30분",
"3:30 PM") from game screenshots or pasted text and turns them into
notification times.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogger(viper.GetString("mode"), cmd.ErrOrStderr())
		},
	}

	d := profile.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gamenoti.yaml)")
	flags.String("mode", d.Mode, `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("timezone", d.Timezone, `IANA timezone notification times are computed in (default is local)`)
	flags.Bool("ocr", d.OCREnabled, "enable tesseract OCR for images")
	flags.String("tesseract", d.TesseractPath, "path to the tesseract executable")
	flags.String("tessdata", d.TessdataPath, "tessdata directory")
	flags.String("lang", d.OCRLanguages, "tesseract languages")
	flags.Int("psm", d.OCRPageSegMode, "tesseract page segmentation mode")

	for _, name := range []string{"mode", "timezone", "ocr", "tesseract", "tessdata", "lang", "psm"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newServeCmd(), newExtractCmd(), newVersionCmd())
	return rootCmd
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cobra.OnInitialize(initConfig)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".gamenoti")
	}

	viper.SetEnvPrefix("gamenoti")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}
}

// loadProfile layers defaults, GAMENOTI_* variables, the config file and
// flags, in that order.
func loadProfile() (*profile.Profile, error) {
	p := profile.Default()
	p.Version = version
	p.FromEnv()

	if viper.IsSet("mode") {
		p.Mode = viper.GetString("mode")
	}
	if viper.IsSet("addr") {
		p.Addr = viper.GetString("addr")
	}
	if viper.IsSet("port") {
		p.Port = viper.GetInt("port")
	}
	if viper.IsSet("timezone") {
		p.Timezone = viper.GetString("timezone")
	}
	if viper.IsSet("ocr") {
		p.OCREnabled = viper.GetBool("ocr")
	}
	if viper.IsSet("tesseract") {
		p.TesseractPath = viper.GetString("tesseract")
	}
	if viper.IsSet("tessdata") {
		p.TessdataPath = viper.GetString("tessdata")
	}
	if viper.IsSet("lang") {
		p.OCRLanguages = viper.GetString("lang")
	}
	if viper.IsSet("psm") {
		p.OCRPageSegMode = viper.GetInt("psm")
	}
	if viper.IsSet("inbox") {
		p.InboxDir = viper.GetString("inbox")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setupLogger(mode string, w io.Writer) {
	level := slog.LevelInfo
	if mode == "dev" {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if mode == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
