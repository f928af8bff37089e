package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/settings"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sayProvider string
	sayVoice    string
	sayStyle    string
	sayRate     int
	sayPitch    int
	sayVolume   int
	sayFormat   string
	sayRegion   string
	sayOut      string
	sayPlay     bool
	saySpeed    float64
	sayRetries  int

	sayCmd = &cobra.Command{
		Use:   "say [TEXT...]",
		Short: "Synthesize text without opening the studio",
		Long: paragraph(fmt.Sprintf("\n%s text with the saved voice and sliders of a provider page, "+
			"then download or play the clip. Text is read from stdin when no argument is given.", keyword("Synthesize"))),
		Example: paragraph("ttstudio say hello there\necho hi | ttstudio say --provider azure --style cheerful --play"),
		RunE:    runSay,
	}
)

func init() {
	addSayFlags(sayCmd)
}

func addSayFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&sayProvider, "provider", "P", "", "edge or azure (default from config)")
	f.StringVarP(&sayVoice, "voice", "v", "", "voice id (default: saved voice)")
	f.StringVar(&sayStyle, "style", "", "speaking style (azure)")
	f.IntVarP(&sayRate, "rate", "r", 0, "rate in percent")
	f.IntVar(&sayPitch, "pitch", 0, "pitch offset")
	f.IntVar(&sayVolume, "volume", 0, "volume in percent")
	f.StringVar(&sayFormat, "format", "", "mp3 or wav (edge)")
	f.StringVar(&sayRegion, "region", "", "azure region")
	f.StringVarP(&sayOut, "out", "o", "", "output file or directory (default: download dir)")
	f.BoolVarP(&sayPlay, "play", "p", false, "play the clip instead of only saving it")
	f.Float64Var(&saySpeed, "speed", audio.DefaultSpeed, "playback speed when playing")
	f.IntVar(&sayRetries, "retries", 2, "extra attempts after a transport failure")
}

func runSay(cmd *cobra.Command, args []string) error {
	kind, err := providerArg(nonEmpty(sayProvider))
	if err != nil {
		return err
	}

	text, err := sayText(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(kind)
	if err != nil {
		return err
	}
	defer a.close()

	req, err := sayRequest(ctx, cmd, a, text)
	if err != nil {
		return err
	}
	if err := a.client.Validate(req); err != nil {
		return errors.New(ttypes.MessageOf(err))
	}

	log.Debug("Synthesizing", "provider", kind, "voice", req.Voice, "chars", utf8.RuneCountInString(text))
	var res ttypes.SynthesisResult
	err = retry(ctx, sayRetries, retryWait, func(ctx context.Context) error {
		var err error
		res, err = a.client.Synthesize(ctx, req)
		return err
	})
	if err != nil {
		return errors.New(ttypes.MessageOf(err))
	}

	url := a.client.ResolveURL(res.AudioURL)
	filename := studio.ClipFilename(kind, req.Voice, res.Format, time.Now())

	if sayPlay {
		if err := playClip(ctx, cmd.ErrOrStderr(), a.player, url); err != nil {
			return err
		}
		if !cmd.Flags().Changed("out") {
			return nil
		}
	}

	clip, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return errors.New(ttypes.MessageOf(err))
	}
	path := outputPath(sayOut, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write clip: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", path, dim(humanize.Bytes(uint64(len(clip.Data)))))
	return nil
}

const retryWait = 500 * time.Millisecond

// retry calls fn until it succeeds, fails with an error that is not
// retryable, or ctx ends. The wait grows with each attempt.
func retry(ctx context.Context, retries int, wait time.Duration, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= retries || ctx.Err() != nil {
			return err
		}
		var se *ttypes.Error
		if !errors.As(err, &se) || !se.IsRetryable() {
			return err
		}
		log.Debug("Retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait * time.Duration(attempt+1)):
		}
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// sayText joins the arguments, or reads stdin when there are none or the
// only one is "-".
func sayText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(f) {
		return "", errors.New("no text given: pass it as arguments or pipe it in")
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return string(b), nil
}

// sayRequest fills the request from flags, falling back to the saved page
// controls, then the page defaults.
func sayRequest(ctx context.Context, cmd *cobra.Command, a *app, text string) (ttypes.SynthesisRequest, error) {
	profile := a.deps.Profile
	rec := savedRecord(a.kind)
	changed := cmd.Flags().Changed

	req := ttypes.SynthesisRequest{
		Text:   text,
		Voice:  firstNonEmpty(sayVoice, rec.Voice),
		Rate:   profile.Rate.Clamp(intFlag(changed("rate"), sayRate, rec.Rate)),
		Pitch:  profile.Pitch.Clamp(intFlag(changed("pitch"), sayPitch, rec.Pitch)),
		Volume: profile.Volume.Clamp(intFlag(changed("volume"), sayVolume, rec.Volume)),
	}

	if a.kind == ttypes.ProviderAzure {
		req.APIKey = azureKey()
		req.Region = firstNonEmpty(sayRegion, rec.Region, profile.DefaultRegion)
		req.Style = firstNonEmpty(sayStyle, voice.DefaultStyle)
		if !changed("style") && sayVoice == "" && rec.Style != "" {
			req.Style = rec.Style
		}
	} else {
		req.Format = firstNonEmpty(sayFormat, rec.Format, profile.DefaultFormat())
	}

	if req.Voice == "" {
		voices, err := a.client.ListVoices(ctx, provider.VoiceQuery{Region: req.Region, APIKey: req.APIKey})
		if err != nil {
			return req, errors.New(ttypes.MessageOf(err))
		}
		groups := voice.GroupVoices(voices, profile.Preferred, profile.GroupBy)
		req.Voice = voice.Restore(groups, "", "").ID
	}
	return req, nil
}

func intFlag(set bool, flag int, saved *int) int {
	if set {
		return flag
	}
	return settings.IntOr(saved, 0)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// outputPath resolves --out: empty means the download dir, an existing
// directory or a trailing separator means a directory.
func outputPath(out, filename string) string {
	if out == "" {
		out = firstNonEmpty(viper.GetString("download_dir"), ".")
	}
	out = expandPath(out)
	if strings.HasSuffix(out, string(os.PathSeparator)) {
		return filepath.Join(out, filename)
	}
	if st, err := os.Stat(out); err == nil && st.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}

// playClip plays url to the end, drawing the elapsed time on a terminal.
func playClip(ctx context.Context, w io.Writer, p *audio.Player, url string) error {
	if err := p.Load(url); err != nil {
		return fmt.Errorf("unable to load clip: %w", err)
	}
	p.SetPlaybackRate(saySpeed)
	if err := p.Play(); err != nil {
		return fmt.Errorf("unable to play clip: %w", err)
	}

	select {
	case <-p.Ready():
	case <-ctx.Done():
		p.Pause()
		return nil
	}
	if err := p.Err(); err != nil {
		return fmt.Errorf("unable to play clip: %w", err)
	}

	tty := isTerminal(w)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if tty {
			fmt.Fprintf(w, "\r▶ %s / %s", audio.FormatTime(p.CurrentTime()), audio.FormatTime(p.Duration()))
		}
		if p.Paused() {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			p.Pause()
			if tty {
				fmt.Fprintln(w)
			}
			return nil
		}
	}
	if tty {
		fmt.Fprintln(w)
	}
	return nil
}
