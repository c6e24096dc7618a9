package contract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

const (
	testGuild   snowflake.ID = 100
	testVoiceX  snowflake.ID = 201
	testVoiceY  snowflake.ID = 202
	testText    snowflake.ID = 301
	testUser    snowflake.ID = 401
	testBot     snowflake.ID = 999
	testUnknown snowflake.ID = 555
)

var (
	listener = domain.User{ID: testUser, DisplayName: "listener"}
	botUser  = domain.User{ID: testBot, DisplayName: "isabelle", Bot: true}
)

// fakeDirectory is a test double for domain.Directory. The bot's own membership is
// kept in sync with botChannel.
type fakeDirectory struct {
	mu         sync.Mutex
	channels   map[snowflake.ID]*domain.Channel
	members    map[snowflake.ID][]domain.User
	botChannel snowflake.ID
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		channels: map[snowflake.ID]*domain.Channel{
			testVoiceX: {ID: testVoiceX, GuildID: testGuild, Name: "x", Kind: domain.ChannelKindVoice},
			testVoiceY: {ID: testVoiceY, GuildID: testGuild, Name: "y", Kind: domain.ChannelKindVoice},
			testText:   {ID: testText, GuildID: testGuild, Name: "general", Kind: domain.ChannelKindText},
		},
		members: make(map[snowflake.ID][]domain.User),
	}
}

func (d *fakeDirectory) setMembers(channelID snowflake.ID, users ...domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[channelID] = users
}

func (d *fakeDirectory) setBotChannel(channelID snowflake.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.botChannel = channelID
}

func (d *fakeDirectory) removeChannel(channelID snowflake.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, channelID)
}

func (d *fakeDirectory) ResolveGuild(guildID snowflake.ID) (*domain.Guild, bool) {
	if guildID != testGuild {
		return nil, false
	}
	return &domain.Guild{ID: guildID, Name: "test"}, true
}

func (d *fakeDirectory) ResolveChannel(guildID, channelID snowflake.ID) (*domain.Channel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.channels[channelID]
	return c, ok && guildID == testGuild
}

func (d *fakeDirectory) ResolveUser(_, userID snowflake.ID) (*domain.User, bool) {
	switch userID {
	case testUser:
		return &listener, true
	case testBot:
		return &botUser, true
	}
	return nil, false
}

func (d *fakeDirectory) BotVoiceChannel(snowflake.ID) (snowflake.ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.botChannel, d.botChannel != 0
}

func (d *fakeDirectory) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for channelID, members := range d.members {
		for _, m := range members {
			if m.ID == userID {
				return channelID, true
			}
		}
	}
	return 0, false
}

func (d *fakeDirectory) VoiceMembers(_, channelID snowflake.ID) []domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	members := append([]domain.User(nil), d.members[channelID]...)
	if channelID == d.botChannel {
		members = append(members, botUser)
	}
	return members
}

// fakeVoice is a test double for ports.VoiceConnection that moves the bot in the directory.
type fakeVoice struct {
	dir *fakeDirectory

	mu      sync.Mutex
	joins   []snowflake.ID
	leaves  int
	joinErr error
}

func (v *fakeVoice) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.joinErr != nil {
		return v.joinErr
	}
	v.joins = append(v.joins, channelID)
	v.dir.setBotChannel(channelID)
	return nil
}

func (v *fakeVoice) LeaveChannel(context.Context, snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	v.dir.setBotChannel(0)
	return nil
}

func (v *fakeVoice) leaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leaves
}

// fakePlayer is a test double for domain.Player.
type fakePlayer struct {
	mu       sync.Mutex
	played   []string
	pauses   int
	resumes  int
	stops    int
	failPlay map[string]bool
	pauseErr error

	// When release is set, Play signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (p *fakePlayer) block() (started chan struct{}, release chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = make(chan struct{}, 1)
	p.release = make(chan struct{})
	return p.started, p.release
}

func (p *fakePlayer) Play(ctx context.Context, track domain.PlayableTrack) error {
	p.mu.Lock()
	started, release := p.started, p.release
	p.mu.Unlock()

	if release != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPlay[track.Identifier] {
		return errors.New("stream unavailable")
	}
	p.played = append(p.played, track.Identifier)
	return nil
}

func (p *fakePlayer) Pause(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pauseErr != nil {
		return p.pauseErr
	}
	p.pauses++
	return nil
}

func (p *fakePlayer) Resume(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
	return nil
}

func (p *fakePlayer) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) playedIdentifiers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func (p *fakePlayer) counts() (pauses, resumes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses, p.resumes
}

// fakeNotifier records status messages.
type fakeNotifier struct {
	mu         sync.Mutex
	nowPlaying []*ports.NowPlayingInfo
	notices    []string
	errors     []string
}

func (n *fakeNotifier) SendNowPlaying(_ context.Context, _ snowflake.ID, info *ports.NowPlayingInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nowPlaying = append(n.nowPlaying, info)
	return nil
}

func (n *fakeNotifier) SendNotice(_ context.Context, _ snowflake.ID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, message)
	return nil
}

func (n *fakeNotifier) SendError(_ context.Context, _ snowflake.ID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
	return nil
}

func (n *fakeNotifier) counts() (nowPlaying, notices, errs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.nowPlaying), len(n.notices), len(n.errors)
}

// fakeSettings is an in-memory ports.SettingsStore.
type fakeSettings struct {
	mu       sync.Mutex
	settings map[snowflake.ID]ports.ContractSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: make(map[snowflake.ID]ports.ContractSettings)}
}

func (s *fakeSettings) Save(_ context.Context, settings ports.ContractSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.GuildID] = settings
	return nil
}

func (s *fakeSettings) LoadAll(context.Context) ([]ports.ContractSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]ports.ContractSettings, 0, len(s.settings))
	for _, settings := range s.settings {
		result = append(result, settings)
	}
	return result, nil
}

func (s *fakeSettings) get(guildID snowflake.ID) (ports.ContractSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[guildID]
	return settings, ok
}

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock forward and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// pending returns the number of armed timers.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// testRequest is a domain.Request resolving to "encoded-<input>".
type testRequest struct {
	*domain.RequestBase
	live bool
}

func (r *testRequest) Kind() domain.RequestKind { return domain.KindTrack }

func (r *testRequest) Init(context.Context) error {
	return r.MarkReady(domain.Metadata{
		Identifier: "encoded-" + r.Input(),
		Title:      r.Input(),
		Length:     3 * time.Minute,
		Live:       r.live,
	})
}

type harness struct {
	t        *testing.T
	dir      *fakeDirectory
	voice    *fakeVoice
	player   *fakePlayer
	notifier *fakeNotifier
	settings *fakeSettings
	clock    *fakeClock
	contract *Contract
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := newFakeDirectory()
	home := testText
	h := &harness{
		t:        t,
		dir:      dir,
		voice:    &fakeVoice{dir: dir},
		player:   &fakePlayer{failPlay: make(map[string]bool)},
		notifier: &fakeNotifier{},
		settings: newFakeSettings(),
		clock:    &fakeClock{},
	}
	h.contract = New(testGuild, Dependencies{
		Player:    h.player,
		Voice:     h.voice,
		Directory: h.dir,
		Notifier:  h.notifier,
		Settings:  h.settings,
		Clock:     h.clock,
	}, WithHomeID(&home))
	t.Cleanup(h.contract.Close)

	return h
}

func (h *harness) request(input string, channelID snowflake.ID) *testRequest {
	h.t.Helper()

	base, err := domain.NewRequestBase(h.dir, domain.RequestParams{
		Input:     input,
		GuildID:   testGuild,
		ChannelID: channelID,
		UserID:    testUser,
	})
	if err != nil {
		h.t.Fatalf("failed to create request: %v", err)
	}
	r := &testRequest{RequestBase: base}
	if err := r.Init(h.t.Context()); err != nil {
		h.t.Fatalf("failed to init request: %v", err)
	}
	return r
}

func (h *harness) add(r domain.Request) AddResult {
	h.t.Helper()

	result, err := h.contract.Add(h.t.Context(), r, -1)
	if err != nil {
		h.t.Fatalf("unexpected add error: %v", err)
	}
	return result
}

func (h *harness) sync() {
	h.t.Helper()

	if err := h.contract.Sync(h.t.Context()); err != nil {
		h.t.Fatalf("failed to sync contract: %v", err)
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.sync()
}

func (h *harness) assertMode(want domain.Mode) {
	h.t.Helper()

	if got := h.contract.Mode(); got != want {
		h.t.Fatalf("expected mode %v, got %v", want, got)
	}
}

func (h *harness) assertQueue(want ...string) {
	h.t.Helper()

	queue := h.contract.Queue()
	got := make([]string, len(queue))
	for i, r := range queue {
		got[i] = r.Input()
	}
	if len(got) != len(want) {
		h.t.Fatalf("expected queue %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("expected queue %v, got %v", want, got)
		}
	}
}

// assertInvariants checks the properties every reachable state must have.
func (h *harness) assertInvariants() {
	h.t.Helper()

	snapshot := h.contract.Snapshot()
	waitingStandby := snapshot.Mode == domain.ModeStandby && snapshot.PrevMode == domain.ModeWaiting
	if len(snapshot.Queue) == 0 && snapshot.Mode != domain.ModeIdle && snapshot.Mode != domain.ModeWaiting && !waitingStandby {
		h.t.Fatalf("empty queue in mode %v", snapshot.Mode)
	}
	if snapshot.Mode == domain.ModePlaying && (len(snapshot.Queue) == 0 || !snapshot.Queue[0].Started()) {
		h.t.Fatal("playing without a started head")
	}
}
