package studio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/preset"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/settings"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
)

// counterWarnRatio is the share of the text limit above which the
// character counter turns into a warning.
const counterWarnRatio = 0.9

// Deps are the collaborators of a Controller. Presets, Media and Fetcher
// may be nil.
type Deps struct {
	Profile  Profile
	Client   provider.Client
	Settings *settings.Store
	Presets  preset.Store
	Media    audio.Media
	Fetcher  audio.Fetcher

	// Now stamps download filenames. Defaults to time.Now.
	Now func() time.Time
}

// opSlot sequences one kind of request. Only the latest request of a kind
// may touch state; starting a new one cancels the previous.
type opSlot struct {
	seq    uint64
	cancel context.CancelFunc
}

// Controller drives one studio page.
type Controller struct {
	profile Profile
	client  provider.Client
	store   *settings.Store
	presets preset.Store
	view    View
	now     func() time.Time

	transMu   sync.Mutex
	transport *audio.Transport

	mu       sync.Mutex
	controls Controls
	speed    float64
	voices   []voice.Voice
	groups   []voice.Group
	styles   []string
	loaded   bool
	expanded bool

	pendingVoice string
	pendingStyle string

	voiceOp  opSlot
	synthOp  opSlot
	presetOp opSlot
}

// New creates a controller rendering into view.
func New(view View, deps Deps) *Controller {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		profile:   deps.Profile,
		client:    deps.Client,
		store:     deps.Settings,
		presets:   deps.Presets,
		view:      view,
		now:       now,
		transport: audio.NewTransport(deps.Media, view, deps.Fetcher),
		controls:  defaultControls(deps.Profile),
		speed:     audio.DefaultSpeed,
		styles:    []string{voice.DefaultStyle},
	}
	if c.store != nil {
		c.store.OnError = func(err error) {
			c.view.Notify(LevelWarning, "Settings not saved", ttypes.MessageOf(err))
		}
	}
	if n, ok := deps.Media.(audio.Notifier); ok {
		n.OnStateChange(c.UpdateProgress)
	}
	return c
}

func defaultControls(p Profile) Controls {
	c := Controls{Format: p.DefaultFormat()}
	if p.Styles {
		c.Style = voice.DefaultStyle
	}
	if p.HasRegion() {
		c.Region = p.DefaultRegion
	}
	return c
}

// Profile returns the page profile.
func (c *Controller) Profile() Profile { return c.profile }

// Controls returns a copy of the current control values.
func (c *Controller) Controls() Controls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls
}

// PlaybackSpeed returns the selected playback multiplier.
func (c *Controller) PlaybackSpeed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Voices returns the loaded catalog in display order.
func (c *Controller) Voices() []voice.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return voice.Flatten(c.groups)
}

// Init restores the saved controls, then starts the page.
func (c *Controller) Init(ctx context.Context) {
	c.LoadSettings()
	c.Start(ctx)
}

// Start loads voices when no credential is needed or one is set, and lists
// presets.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	canLoad := !c.client.RequiresKey() || strings.TrimSpace(c.controls.APIKey) != ""
	c.mu.Unlock()

	if canLoad {
		c.LoadVoices(ctx)
	} else {
		c.view.SetVoiceStatus(VoiceIdle, "Enter an API key to load voices")
	}
	if c.presets != nil {
		c.RefreshPresets(ctx)
	}
}

// LoadSettings applies the stored record. A missing record keeps the
// defaults; an unreadable one keeps them too and raises a warning.
func (c *Controller) LoadSettings() {
	var rec settings.Record
	if c.store != nil {
		var err error
		rec, err = c.store.Load()
		if err != nil {
			c.view.Notify(LevelWarning, "Settings not loaded", ttypes.MessageOf(err))
		}
	}

	c.mu.Lock()
	ctl := defaultControls(c.profile)
	if c.client.RequiresKey() {
		ctl.APIKey = rec.APIKey
	}
	if c.profile.HasRegion() && rec.Region != "" {
		ctl.Region = rec.Region
	}
	ctl.Voice = rec.Voice
	if c.profile.Styles && rec.Style != "" {
		ctl.Style = rec.Style
	}
	ctl.Rate = c.profile.Rate.Clamp(settings.IntOr(rec.Rate, 0))
	ctl.Pitch = c.profile.Pitch.Clamp(settings.IntOr(rec.Pitch, 0))
	ctl.Volume = c.profile.Volume.Clamp(settings.IntOr(rec.Volume, 0))
	if slices.Contains(c.profile.Formats, rec.Format) {
		ctl.Format = rec.Format
	}
	ctl.Text = rec.Text
	c.controls = ctl
	if rec.PlaybackRate > 0 {
		c.speed = rec.PlaybackRate
	}
	speed := c.speed
	c.mu.Unlock()

	c.withTransport(func(t *audio.Transport) { t.SetPlaybackSpeed(speed) })
	c.view.SetControls(ctl)
	c.updateCharCount(ctl.Text)
	log.Debug("Settings applied", "provider", c.profile.Kind, "voice", ctl.Voice)
}

// LoadVoices fetches the catalog and restores the selection: a pending
// preset voice first, then the saved voice, then the first listed voice.
// Only the latest call takes effect.
func (c *Controller) LoadVoices(ctx context.Context) {
	c.mu.Lock()
	q := provider.VoiceQuery{Region: c.controls.Region, APIKey: strings.TrimSpace(c.controls.APIKey)}
	c.mu.Unlock()

	if c.client.RequiresKey() && q.APIKey == "" {
		c.view.Notify(LevelWarning, "API key required", "An API key is needed to load voices.")
		return
	}

	ctx, seq := c.begin(ctx, &c.voiceOp)
	c.mu.Lock()
	c.clearCatalogLocked()
	c.mu.Unlock()
	c.view.SetBusy(OpVoices, true)
	c.view.SetVoiceStatus(VoiceLoading, "Loading voices...")
	c.view.RenderVoices(nil, "", 0, false)

	voices, err := c.client.ListVoices(ctx, q)

	c.mu.Lock()
	if !c.latest(&c.voiceOp, seq) {
		c.mu.Unlock()
		log.Debug("Dropping stale voice list", "seq", seq)
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.view.SetBusy(OpVoices, false)
		if ttypes.CodeOf(err) == ttypes.ErrorCodeCanceled {
			c.view.SetVoiceStatus(VoiceIdle, "Voice loading canceled")
			return
		}
		log.Error("Voice list failed", "provider", c.profile.Kind, "error", err)
		c.view.SetVoiceStatus(VoiceError, "Voice list unavailable")
		c.view.RenderVoices(nil, "", 0, false)
		c.renderStyles()
		c.view.Notify(LevelError, "Voices not loaded", ttypes.MessageOf(err))
		return
	}

	c.voices = voices
	c.groups = voice.GroupVoices(voices, c.profile.Preferred, c.profile.GroupBy)
	c.loaded = true

	prevVoice, prevStyle := c.controls.Voice, c.controls.Style
	sel := voice.Restore(c.groups, c.pendingVoice, prevVoice)
	pendingVoice, pendingStyle := c.pendingVoice, c.pendingStyle
	c.pendingVoice, c.pendingStyle = "", ""

	c.controls.Voice = sel.ID
	c.styles = c.stylesForLocked(sel.ID)
	if c.profile.Styles {
		switch sel.Source {
		case voice.SourcePending:
			c.controls.Style = pickStyle(pendingStyle, c.styles)
		default:
			c.controls.Style = voice.ResolveStyle(prevStyle, prevVoice, sel.ID, c.styles)
		}
	}
	if c.profile.CollapseOthers && !c.expanded && hiddenGroup(c.groups, sel.ID) {
		c.expanded = true
	}
	ctl := c.controls
	region := ctl.Region
	c.mu.Unlock()

	c.view.SetBusy(OpVoices, false)
	c.renderVoices()
	c.renderStyles()
	c.view.SetControls(ctl)

	switch {
	case sel.Source == voice.SourcePending:
		c.view.Notify(LevelSuccess, "Preset applied", fmt.Sprintf("Voice %s selected.", pendingVoice))
	case pendingVoice != "" && sel.Missing == pendingVoice:
		c.view.Notify(LevelWarning, "Voice not found", fmt.Sprintf("Preset voice %q is not available.", pendingVoice))
	case sel.Missing != "":
		c.view.Notify(LevelWarning, "Voice not found", fmt.Sprintf("Saved voice %q is not available.", sel.Missing))
	}

	status := fmt.Sprintf("Loaded %d voices", len(voices))
	if c.profile.HasRegion() {
		status += " (" + region + ")"
	}
	c.view.SetVoiceStatus(VoiceReady, status)
	c.view.Notify(LevelSuccess, "Voices loaded", status)
	c.save()
}

// SelectVoice makes id the current voice and resets the style.
func (c *Controller) SelectVoice(id string) error {
	c.mu.Lock()
	if _, ok := voice.Find(c.voices, id); !ok {
		c.mu.Unlock()
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, fmt.Sprintf("unknown voice %q", id), ttypes.ErrNotFound)
	}
	c.controls.Voice = id
	c.styles = c.stylesForLocked(id)
	if c.profile.Styles {
		c.controls.Style = voice.DefaultStyle
	}
	ctl := c.controls
	c.mu.Unlock()

	c.renderStyles()
	c.view.SetControls(ctl)
	c.save()
	return nil
}

// SelectStyle sets the speaking style. It must be offered for the voice.
func (c *Controller) SelectStyle(style string) error {
	if !c.profile.Styles {
		return nil
	}
	c.mu.Lock()
	if !slices.Contains(c.styles, style) {
		c.mu.Unlock()
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, fmt.Sprintf("style %q is not offered for this voice", style), nil)
	}
	c.controls.Style = style
	ctl := c.controls
	c.mu.Unlock()

	c.view.SetControls(ctl)
	c.save()
	return nil
}

// SetRate sets the rate slider, clamped to the page range.
func (c *Controller) SetRate(v int) {
	c.update(func(ctl *Controls) { ctl.Rate = c.profile.Rate.Clamp(v) })
}

// SetPitch sets the pitch slider, clamped to the page range.
func (c *Controller) SetPitch(v int) {
	c.update(func(ctl *Controls) { ctl.Pitch = c.profile.Pitch.Clamp(v) })
}

// SetVolume sets the volume slider, clamped to the page range.
func (c *Controller) SetVolume(v int) {
	c.update(func(ctl *Controls) { ctl.Volume = c.profile.Volume.Clamp(v) })
}

// SetFormat selects an output format offered by the page.
func (c *Controller) SetFormat(format string) error {
	if !slices.Contains(c.profile.Formats, format) {
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, fmt.Sprintf("unsupported format %q", format), nil)
	}
	c.update(func(ctl *Controls) { ctl.Format = format })
	return nil
}

// SetText replaces the text and refreshes the character counter.
func (c *Controller) SetText(text string) {
	c.update(func(ctl *Controls) { ctl.Text = text })
	c.updateCharCount(text)
}

// SetRegion selects the azure region. Loaded voices stay until the next
// load.
func (c *Controller) SetRegion(region string) error {
	if !c.profile.HasRegion() {
		return nil
	}
	if !slices.Contains(c.profile.Regions, region) {
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, fmt.Sprintf("unknown region %q", region), nil)
	}
	c.update(func(ctl *Controls) { ctl.Region = region })

	c.mu.Lock()
	hasKey := strings.TrimSpace(c.controls.APIKey) != ""
	c.mu.Unlock()
	if hasKey {
		c.view.SetVoiceStatus(VoiceIdle, "Region changed, reload voices")
	} else {
		c.view.SetVoiceStatus(VoiceIdle, "Region changed, enter an API key to load voices")
	}
	return nil
}

// SetAPIKey stores the credential.
func (c *Controller) SetAPIKey(key string) {
	if !c.client.RequiresKey() {
		return
	}
	c.update(func(ctl *Controls) { ctl.APIKey = strings.TrimSpace(key) })
}

// Generate validates the controls, synthesizes, and loads the result into
// the player. Only the latest call takes effect; failures keep the
// previously loaded clip.
func (c *Controller) Generate(ctx context.Context) {
	c.mu.Lock()
	ctl := c.controls
	if !c.loaded {
		// Nothing listed, so nothing is selected.
		ctl.Voice = ""
	}
	c.mu.Unlock()

	req := ttypes.SynthesisRequest{
		Text:   ctl.Text,
		Voice:  ctl.Voice,
		Rate:   ctl.Rate,
		Pitch:  ctl.Pitch,
		Volume: ctl.Volume,
		APIKey: strings.TrimSpace(ctl.APIKey),
	}
	if c.profile.Styles {
		req.Style = ctl.Style
		if req.Style == "" {
			req.Style = voice.DefaultStyle
		}
	}
	if c.profile.HasRegion() {
		req.Region = ctl.Region
	} else {
		req.Format = ctl.Format
	}

	if err := c.client.Validate(req); err != nil {
		c.view.Notify(LevelWarning, validationTitle(err), ttypes.MessageOf(err))
		return
	}
	if c.profile.Kind == ttypes.ProviderAzure && IsSSML(req.Text) {
		c.view.Notify(LevelInfo, "SSML input", "SSML detected, sending it as is.")
	}

	ctx, seq := c.begin(ctx, &c.synthOp)
	c.view.SetBusy(OpSynthesize, true)

	res, err := c.client.Synthesize(ctx, req)

	c.mu.Lock()
	latest := c.latest(&c.synthOp, seq)
	c.mu.Unlock()
	if !latest {
		log.Debug("Dropping stale synthesis result", "seq", seq)
		return
	}
	c.view.SetBusy(OpSynthesize, false)

	if err != nil {
		if ttypes.CodeOf(err) == ttypes.ErrorCodeCanceled {
			return
		}
		log.Error("Synthesis failed", "provider", c.profile.Kind, "voice", req.Voice, "error", err)
		c.view.Notify(noticeLevel(err), "Generation failed", ttypes.MessageOf(err))
		return
	}

	filename := ClipFilename(c.profile.Kind, req.Voice, res.Format, c.now())
	url := c.client.ResolveURL(res.AudioURL)
	c.withTransport(func(t *audio.Transport) { t.LoadAudio(url, filename) })

	c.view.Notify(LevelSuccess, "Speech generated", "Audio is loaded in the player.")
	c.save()
}

// ClearText empties the text box.
func (c *Controller) ClearText() {
	c.SetText("")
	c.view.Notify(LevelInfo, "Text cleared", "")
}

// Reset restores the voice, style, sliders, format, text and speed
// defaults. The API key and region are kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	def := defaultControls(c.profile)
	def.APIKey, def.Region = c.controls.APIKey, c.controls.Region
	c.controls = def
	c.speed = audio.DefaultSpeed
	c.styles = []string{voice.DefaultStyle}
	c.pendingVoice, c.pendingStyle = "", ""
	c.mu.Unlock()

	c.withTransport(func(t *audio.Transport) { t.SetPlaybackSpeed(audio.DefaultSpeed) })
	c.renderVoices()
	c.renderStyles()
	c.view.SetControls(def)
	c.updateCharCount("")
	c.saveNow()
	c.view.Notify(LevelSuccess, "Settings reset", "Voice parameters and text are back to defaults.")
}

// ApplyPreset applies p to the controls. Before the catalog is loaded the
// voice and style are kept pending and applied by the next load. A voice
// missing from the catalog raises a warning; the sliders apply regardless.
func (c *Controller) ApplyPreset(p preset.Preset) {
	var notice func()

	c.mu.Lock()
	if p.Voice != "" {
		switch {
		case !c.loaded:
			c.pendingVoice, c.pendingStyle = p.Voice, p.Style
			notice = func() {
				c.view.Notify(LevelInfo, "Preset deferred", "Voices are not loaded yet, the preset applies after loading.")
			}
		default:
			if _, ok := voice.Find(c.voices, p.Voice); ok {
				c.controls.Voice = p.Voice
				c.styles = c.stylesForLocked(p.Voice)
				if c.profile.Styles {
					c.controls.Style = pickStyle(p.Style, c.styles)
				}
				if c.profile.CollapseOthers && hiddenGroup(c.groups, p.Voice) {
					c.expanded = true
				}
			} else {
				notice = func() {
					c.view.Notify(LevelWarning, "Voice not found", fmt.Sprintf("Preset voice %q is not available.", p.Voice))
				}
			}
		}
	}
	c.controls.Rate = c.profile.Rate.Clamp(p.Rate)
	c.controls.Pitch = c.profile.Pitch.Clamp(p.Pitch)
	c.controls.Volume = c.profile.Volume.Clamp(p.Volume)
	ctl := c.controls
	loaded := c.loaded
	c.mu.Unlock()

	if notice != nil {
		notice()
	}
	if loaded {
		c.renderVoices()
		c.renderStyles()
	}
	c.view.SetControls(ctl)
	c.save()
}

// RefreshPresets reloads the preset list.
func (c *Controller) RefreshPresets(ctx context.Context) {
	if c.presets == nil {
		return
	}
	ctx, seq := c.begin(ctx, &c.presetOp)
	c.view.SetBusy(OpPresets, true)

	list, err := c.presets.List(ctx)

	c.mu.Lock()
	latest := c.latest(&c.presetOp, seq)
	c.mu.Unlock()
	if !latest {
		return
	}
	c.view.SetBusy(OpPresets, false)
	if err != nil {
		if ttypes.CodeOf(err) != ttypes.ErrorCodeCanceled {
			log.Warn("Preset list failed", "error", err)
			c.view.RenderPresets(nil, false)
			c.view.Notify(LevelError, "Presets not loaded", ttypes.MessageOf(err))
		}
		return
	}
	c.view.RenderPresets(list, true)
}

// LoadPreset fetches the named preset and applies it.
func (c *Controller) LoadPreset(ctx context.Context, name string) error {
	if c.presets == nil {
		return nil
	}
	p, err := c.presets.Get(ctx, name)
	if err != nil {
		c.view.Notify(LevelError, "Preset not loaded", ttypes.MessageOf(err))
		return err
	}
	c.ApplyPreset(p)
	c.view.Notify(LevelSuccess, "Preset loaded", p.Name)
	return nil
}

// SavePreset stores the current voice, style and sliders under name.
func (c *Controller) SavePreset(ctx context.Context, name string) error {
	if c.presets == nil {
		return nil
	}
	c.mu.Lock()
	p := preset.Preset{
		Name:   strings.TrimSpace(name),
		Voice:  c.controls.Voice,
		Rate:   c.controls.Rate,
		Pitch:  c.controls.Pitch,
		Volume: c.controls.Volume,
	}
	if c.profile.Styles {
		p.Style = c.controls.Style
	}
	c.mu.Unlock()

	if err := c.presets.Save(ctx, p); err != nil {
		c.view.Notify(noticeLevel(err), "Preset not saved", ttypes.MessageOf(err))
		return err
	}
	c.view.Notify(LevelSuccess, "Preset saved", p.Name)
	c.RefreshPresets(ctx)
	return nil
}

// DeletePreset removes the named preset.
func (c *Controller) DeletePreset(ctx context.Context, name string) error {
	if c.presets == nil {
		return nil
	}
	if err := c.presets.Delete(ctx, name); err != nil {
		c.view.Notify(LevelError, "Preset not deleted", ttypes.MessageOf(err))
		return err
	}
	c.view.Notify(LevelSuccess, "Preset deleted", strings.TrimSpace(name))
	c.RefreshPresets(ctx)
	return nil
}

// ToggleOtherLanguages shows or hides the non-preferred voice groups.
func (c *Controller) ToggleOtherLanguages() {
	if !c.profile.CollapseOthers {
		return
	}
	c.mu.Lock()
	c.expanded = !c.expanded
	c.mu.Unlock()
	c.renderVoices()
}

// Settings returns the record the page would persist now.
func (c *Controller) Settings() settings.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordLocked()
}

// TogglePlay plays or pauses the loaded clip.
func (c *Controller) TogglePlay() {
	c.withTransport(func(t *audio.Transport) { t.TogglePlay() })
}

// SetPlaybackSpeed changes the playback multiplier and persists it.
func (c *Controller) SetPlaybackSpeed(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.speed = rate
	c.mu.Unlock()

	c.withTransport(func(t *audio.Transport) { t.SetPlaybackSpeed(rate) })
	c.save()
}

// UpdateProgress refreshes the progress bar and times.
func (c *Controller) UpdateProgress() {
	c.withTransport(func(t *audio.Transport) { t.UpdateProgress() })
}

// Seek jumps to the position under x on a bar starting at left.
func (c *Controller) Seek(x, left, width float64) {
	c.withTransport(func(t *audio.Transport) { t.Seek(x, left, width) })
}

// SeekBy moves the position by delta seconds.
func (c *Controller) SeekBy(delta float64) {
	c.withTransport(func(t *audio.Transport) { t.SeekBy(delta) })
}

// AudioURL returns the URL of the loaded clip, or "".
func (c *Controller) AudioURL() string {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	return c.transport.URL()
}

// Download saves the loaded clip into dir and returns its path.
func (c *Controller) Download(ctx context.Context, dir string) (string, error) {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	path, err := c.transport.Download(ctx, dir)
	if err != nil {
		c.view.Notify(LevelError, "Download failed", ttypes.MessageOf(err))
		return "", err
	}
	c.view.Notify(LevelSuccess, "Downloaded", path)
	return path, nil
}

// Close cancels running requests and flushes pending settings.
func (c *Controller) Close() error {
	c.mu.Lock()
	for _, op := range []*opSlot{&c.voiceOp, &c.synthOp, &c.presetOp} {
		if op.cancel != nil {
			op.cancel()
			op.cancel = nil
		}
	}
	rec := c.recordLocked()
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	c.store.Save(rec)
	return c.store.Close()
}

// ClipFilename names a generated clip {provider}_{voice}_{unixMillis}.{format}.
// Azure clips are always mp3.
func ClipFilename(kind ttypes.ProviderKind, voiceID, format string, at time.Time) string {
	if kind == ttypes.ProviderAzure || format == "" {
		format = FormatMP3
	}
	return fmt.Sprintf("%s_%s_%d.%s", kind, voiceID, at.UnixMilli(), format)
}

// IsSSML reports whether text is a complete <speak> document.
func IsSSML(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "<speak") && strings.HasSuffix(text, "</speak>")
}

// CounterLevel grades a character count against limit.
func CounterLevel(n, limit int) Level {
	switch {
	case limit <= 0:
		return LevelInfo
	case n > limit:
		return LevelError
	case float64(n) > float64(limit)*counterWarnRatio:
		return LevelWarning
	default:
		return LevelInfo
	}
}

func (c *Controller) begin(ctx context.Context, op *opSlot) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op.cancel != nil {
		op.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	op.seq++
	op.cancel = cancel
	return ctx, op.seq
}

// latest reports whether seq is the current request of op and releases its
// context. Callers hold c.mu.
func (c *Controller) latest(op *opSlot, seq uint64) bool {
	if op.seq != seq {
		return false
	}
	if op.cancel != nil {
		op.cancel()
		op.cancel = nil
	}
	return true
}

func (c *Controller) update(fn func(*Controls)) {
	c.mu.Lock()
	fn(&c.controls)
	ctl := c.controls
	c.mu.Unlock()

	c.view.SetControls(ctl)
	c.save()
}

// saveNow writes the record without waiting for the save delay.
func (c *Controller) saveNow() {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	rec := c.recordLocked()
	c.mu.Unlock()
	if err := c.store.SaveNow(rec); err != nil {
		c.view.Notify(LevelWarning, "Settings not saved", ttypes.MessageOf(err))
	}
}

func (c *Controller) save() {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	rec := c.recordLocked()
	c.mu.Unlock()
	c.store.Save(rec)
}

// recordLocked builds the persisted record. Callers hold c.mu.
func (c *Controller) recordLocked() settings.Record {
	ctl := c.controls
	rec := settings.Record{
		Voice:        ctl.Voice,
		Rate:         settings.Int(ctl.Rate),
		Pitch:        settings.Int(ctl.Pitch),
		Volume:       settings.Int(ctl.Volume),
		Text:         ctl.Text,
		PlaybackRate: c.speed,
	}
	if c.client.RequiresKey() {
		rec.APIKey = ctl.APIKey
	}
	if c.profile.HasRegion() {
		rec.Region = ctl.Region
	} else {
		rec.Format = ctl.Format
	}
	if c.profile.Styles {
		rec.Style = ctl.Style
	}
	return rec
}

func (c *Controller) withTransport(fn func(*audio.Transport)) {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	fn(c.transport)
}

func (c *Controller) updateCharCount(text string) {
	n := utf8.RuneCountInString(text)
	limit := c.client.MaxTextLength()
	c.view.SetCharCount(n, limit, CounterLevel(n, limit))
}

// clearCatalogLocked forgets the loaded catalog; the selected voice stays
// in the controls so the next load can restore it. Callers hold c.mu.
func (c *Controller) clearCatalogLocked() {
	c.voices = nil
	c.groups = nil
	c.styles = nil
	c.loaded = false
}

func (c *Controller) renderVoices() {
	c.mu.Lock()
	groups := c.groups
	selected := c.controls.Voice
	enabled := c.loaded && len(c.groups) > 0
	hidden := 0
	if c.profile.CollapseOthers && !c.expanded {
		var shown []voice.Group
		for _, g := range groups {
			if g.Preferred {
				shown = append(shown, g)
			} else {
				hidden += len(g.Voices)
			}
		}
		// Nothing preferred to show: list everything.
		if len(shown) == 0 {
			shown, hidden = groups, 0
		}
		groups = shown
	}
	c.mu.Unlock()

	c.view.RenderVoices(groups, selected, hidden, enabled)
}

func (c *Controller) renderStyles() {
	if !c.profile.Styles {
		return
	}
	c.mu.Lock()
	styles := slices.Clone(c.styles)
	selected := c.controls.Style
	enabled := c.loaded && c.controls.Voice != ""
	c.mu.Unlock()

	c.view.RenderStyles(styles, selected, enabled)
}

// stylesForLocked returns the styles offered for voice id. Callers hold c.mu.
func (c *Controller) stylesForLocked(id string) []string {
	if !c.profile.Styles {
		return []string{voice.DefaultStyle}
	}
	v, ok := voice.Find(c.voices, id)
	if !ok {
		return []string{voice.DefaultStyle}
	}
	return voice.StylesFor(v.Locale)
}

func pickStyle(style string, styles []string) string {
	if style != "" && slices.Contains(styles, style) {
		return style
	}
	return voice.DefaultStyle
}

// hiddenGroup reports whether id sits in a non-preferred group.
func hiddenGroup(groups []voice.Group, id string) bool {
	for _, g := range groups {
		if _, ok := voice.Find(g.Voices, id); ok {
			return !g.Preferred
		}
	}
	return false
}

// noticeLevel grades a failure: input the user can fix is a warning,
// anything else an error.
func noticeLevel(err error) Level {
	var se *ttypes.Error
	if errors.As(err, &se) && se.IsValidation() {
		return LevelWarning
	}
	return LevelError
}

func validationTitle(err error) string {
	switch {
	case errors.Is(err, ttypes.ErrMissingKey):
		return "API key required"
	case errors.Is(err, ttypes.ErrMissingVoice):
		return "Select a voice"
	case errors.Is(err, ttypes.ErrEmptyText):
		return "Enter some text"
	case errors.Is(err, ttypes.ErrTextTooLong):
		return "Text too long"
	default:
		return "Invalid input"
	}
}
