package contract

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

func TestContract_HappyPath(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)

	req := h.request("a", testVoiceX)
	result := h.add(req)

	if result.Mode != domain.ModePlaying || result.Position != 0 {
		t.Fatalf("expected playing at position 0, got %+v", result)
	}
	h.assertMode(domain.ModePlaying)
	h.assertInvariants()
	if h.contract.Current() != req {
		t.Fatal("expected the added request to be current")
	}
	if got := h.player.playedIdentifiers(); !slices.Equal(got, []string{"encoded-a"}) {
		t.Errorf("expected encoded-a to be played, got %v", got)
	}
	if nowPlaying, _, _ := h.notifier.counts(); nowPlaying != 1 {
		t.Errorf("expected 1 now playing message, got %d", nowPlaying)
	}

	h.contract.OnPlayerFinished("encoded-a")
	h.sync()

	h.assertMode(domain.ModeWaiting)
	h.assertQueue()
	h.assertInvariants()

	h.advance(DefaultWaitingTimeout - time.Second)
	h.assertMode(domain.ModeWaiting)

	h.advance(time.Second)
	h.assertMode(domain.ModeIdle)
	h.assertQueue()
	if h.voice.leaveCount() != 1 {
		t.Errorf("expected the voice channel to be left once, got %d", h.voice.leaveCount())
	}
	if _, ok := h.dir.BotVoiceChannel(testGuild); ok {
		t.Error("expected the bot to be disconnected")
	}
}

func TestContract_StandbyRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))

	h.dir.setMembers(testVoiceX)
	h.contract.OnPresenceChanged()
	h.sync()

	h.assertMode(domain.ModeStandby)
	h.assertInvariants()
	if pauses, _ := h.player.counts(); pauses != 1 {
		t.Fatalf("expected the request to be paused, got %d pauses", pauses)
	}

	h.advance(DefaultStandbyTimeout / 2)
	h.dir.setMembers(testVoiceX, listener)
	h.contract.OnPresenceChanged()
	h.sync()

	h.assertMode(domain.ModePlaying)
	h.assertInvariants()
	if _, resumes := h.player.counts(); resumes != 1 {
		t.Errorf("expected the request to be resumed, got %d resumes", resumes)
	}
	if played := h.player.playedIdentifiers(); len(played) != 1 {
		t.Errorf("expected the request not to be restarted, got %v", played)
	}
	if nowPlaying, _, _ := h.notifier.counts(); nowPlaying != 2 {
		t.Errorf("expected now playing to be sent again, got %d messages", nowPlaying)
	}

	h.advance(DefaultStandbyTimeout)
	h.assertMode(domain.ModePlaying)
}

func TestContract_StandbyTimeout(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))

	h.dir.setMembers(testVoiceX)
	h.contract.OnPresenceChanged()
	h.sync()
	h.assertMode(domain.ModeStandby)

	h.advance(DefaultStandbyTimeout)

	h.assertMode(domain.ModeIdle)
	h.assertQueue()
	if h.voice.leaveCount() != 1 {
		t.Errorf("expected the voice channel to be left, got %d leaves", h.voice.leaveCount())
	}
}

func TestContract_PlayInEmptyChannelStandsBy(t *testing.T) {
	h := newHarness(t)

	h.add(h.request("a", testVoiceX))

	h.assertMode(domain.ModeStandby)
	h.assertInvariants()
	if snapshot := h.contract.Snapshot(); snapshot.PrevMode != domain.ModePlaying {
		t.Errorf("expected standby to be entered from playing, got %v", snapshot.PrevMode)
	}
}

func TestContract_StandbyFromPausedReturnsToPaused(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))

	if err := h.contract.Pause(t.Context()); err != nil {
		t.Fatalf("unexpected pause error: %v", err)
	}

	h.dir.setMembers(testVoiceX)
	h.contract.OnPresenceChanged()
	h.sync()
	h.assertMode(domain.ModeStandby)

	h.dir.setMembers(testVoiceX, listener)
	h.contract.OnPresenceChanged()
	h.sync()

	h.assertMode(domain.ModePaused)
	if _, notices, _ := h.notifier.counts(); notices != 1 {
		t.Errorf("expected a paused notice, got %d notices", notices)
	}
	if h.clock.pending() != 0 {
		t.Errorf("expected no pending timer, got %d", h.clock.pending())
	}
}

func TestContract_ResumeWhileIdle(t *testing.T) {
	h := newHarness(t)

	if err := h.contract.Resume(t.Context()); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused, got %v", err)
	}
	if err := h.contract.Pause(t.Context()); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
	if _, err := h.contract.Skip(t.Context(), 1); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
	h.assertMode(domain.ModeIdle)
}

func TestContract_PauseResume(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))

	if err := h.contract.Pause(t.Context()); err != nil {
		t.Fatalf("unexpected pause error: %v", err)
	}
	h.assertMode(domain.ModePaused)

	if err := h.contract.Pause(t.Context()); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying on second pause, got %v", err)
	}

	if err := h.contract.Resume(t.Context()); err != nil {
		t.Fatalf("unexpected resume error: %v", err)
	}
	h.assertMode(domain.ModePlaying)
	h.assertInvariants()

	pauses, resumes := h.player.counts()
	if pauses != 1 || resumes != 1 {
		t.Errorf("expected 1 pause and 1 resume, got %d and %d", pauses, resumes)
	}
}

func TestContract_PauseFailureKeepsMode(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.player.pauseErr = errors.New("node unavailable")

	err := h.contract.Pause(t.Context())
	if err == nil {
		t.Fatal("expected pause error")
	}

	h.assertMode(domain.ModePlaying)
	if _, _, errs := h.notifier.counts(); errs != 1 {
		t.Errorf("expected the failure to be reported, got %d error messages", errs)
	}
}

func TestContract_SkipSingleRequest(t *testing.T) {
	tests := []struct {
		name       string
		disconnect bool
		wantMode   domain.Mode
	}{
		{name: "still connected", wantMode: domain.ModeWaiting},
		{name: "disconnected", disconnect: true, wantMode: domain.ModeIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.dir.setMembers(testVoiceX, listener)
			h.add(h.request("a", testVoiceX))

			if tt.disconnect {
				h.dir.setBotChannel(0)
			}

			result, err := h.contract.Skip(t.Context(), 1)
			if err != nil {
				t.Fatalf("unexpected skip error: %v", err)
			}
			if result.Previous == nil || result.Previous.Input() != "a" {
				t.Errorf("expected a to be the previous request, got %v", result.Previous)
			}
			if result.Playing() {
				t.Error("expected nothing to be playing")
			}

			h.assertMode(tt.wantMode)
			h.assertQueue()
			h.assertInvariants()
		})
	}
}

func TestContract_SkipDiscardsUnpopulatedChannels(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)

	for _, r := range []struct {
		input   string
		channel snowflake.ID
	}{
		{"a", testVoiceX},
		{"b", testVoiceY},
		{"c", testVoiceX},
	} {
		h.add(h.request(r.input, r.channel))
	}

	result, err := h.contract.Skip(t.Context(), 1)
	if err != nil {
		t.Fatalf("unexpected skip error: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Input() != "b" {
		t.Errorf("expected b to be skipped, got %v", result.Skipped)
	}
	if result.Current == nil || result.Current.Input() != "c" {
		t.Fatalf("expected c to be current, got %v", result.Current)
	}
	h.assertQueue("c")
	h.assertMode(domain.ModePlaying)
	if got := h.player.playedIdentifiers(); !slices.Equal(got, []string{"encoded-a", "encoded-c"}) {
		t.Errorf("expected a then c to be played, got %v", got)
	}
}

func TestContract_AddRemoveRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	req := h.request("a", testVoiceX)
	h.add(req)

	removed, err := h.contract.Remove(t.Context(), 0)
	if err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if removed != req {
		t.Error("expected the added request to be removed")
	}

	h.assertQueue()
	h.assertMode(domain.ModeWaiting)
	h.assertInvariants()
}

func TestContract_RemoveQueuedRequest(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))
	h.add(h.request("c", testVoiceX))

	removed, err := h.contract.Remove(t.Context(), 1)
	if err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if removed.Input() != "b" {
		t.Errorf("expected b to be removed, got %s", removed.Input())
	}
	h.assertQueue("a", "c")
	h.assertMode(domain.ModePlaying)

	if _, err := h.contract.Remove(t.Context(), 5); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	h.assertQueue("a", "c")
}

func TestContract_StopIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))

	for range 2 {
		if err := h.contract.Stop(t.Context()); err != nil {
			t.Fatalf("unexpected stop error: %v", err)
		}
		h.assertMode(domain.ModeIdle)
		h.assertQueue()
		if h.voice.leaveCount() != 1 {
			t.Fatalf("expected exactly one leave, got %d", h.voice.leaveCount())
		}
	}
}

func TestContract_AddWhileActiveKeepsHead(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))

	result, err := h.contract.Add(t.Context(), h.request("c", testVoiceX), 0)
	if err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}

	if result.Position != 1 {
		t.Errorf("expected position 1, got %d", result.Position)
	}
	h.assertQueue("a", "c", "b")
}

func TestContract_AddRejectsUninitializedRequest(t *testing.T) {
	h := newHarness(t)

	base, err := domain.NewRequestBase(h.dir, domain.RequestParams{
		Input:     "a",
		GuildID:   testGuild,
		ChannelID: testVoiceX,
		UserID:    testUser,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = h.contract.Add(t.Context(), &testRequest{RequestBase: base}, -1)
	if !errors.Is(err, ErrRequestNotReady) {
		t.Errorf("expected ErrRequestNotReady, got %v", err)
	}
	h.assertQueue()
}

func TestContract_AddPlayFailure(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		wantMode domain.Mode
	}{
		{
			name:     "stream fails after join",
			setup:    func(h *harness) { h.player.failPlay["encoded-a"] = true },
			wantMode: domain.ModeWaiting,
		},
		{
			name:     "join fails",
			setup:    func(h *harness) { h.voice.joinErr = errors.New("missing permissions") },
			wantMode: domain.ModeIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.dir.setMembers(testVoiceX, listener)
			tt.setup(h)

			result := h.add(h.request("a", testVoiceX))

			if result.Mode != tt.wantMode {
				t.Errorf("expected mode %v, got %v", tt.wantMode, result.Mode)
			}
			h.assertQueue()
			h.assertInvariants()
			if _, _, errs := h.notifier.counts(); errs != 1 {
				t.Errorf("expected the failure to be reported, got %d error messages", errs)
			}
		})
	}
}

func TestContract_FinishedFallsThroughUnplayableRequests(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))
	h.add(h.request("c", testVoiceX))
	h.player.failPlay["encoded-b"] = true

	h.contract.OnPlayerFinished("encoded-a")
	h.sync()

	h.assertMode(domain.ModePlaying)
	h.assertQueue("c")
	if got := h.player.playedIdentifiers(); !slices.Equal(got, []string{"encoded-a", "encoded-c"}) {
		t.Errorf("expected a then c to be played, got %v", got)
	}
}

func TestContract_IgnoresStaleEvents(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))

	h.contract.OnPlayerFinished("encoded-b")
	h.contract.OnPlayerError("encoded-zzz", "boom")
	h.sync()

	h.assertMode(domain.ModePlaying)
	h.assertQueue("a", "b")
}

func TestContract_PlayerErrorSkips(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.add(h.request("b", testVoiceX))

	h.contract.OnPlayerError("encoded-a", "track stuck")
	h.sync()

	h.assertMode(domain.ModePlaying)
	h.assertQueue("b")
	if _, _, errs := h.notifier.counts(); errs != 1 {
		t.Errorf("expected the error to be reported, got %d error messages", errs)
	}
}

func TestContract_ConnectionDestroyed(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))

	h.dir.setBotChannel(0)
	h.contract.OnConnectionDestroyed()
	h.sync()

	h.assertMode(domain.ModeIdle)
	h.assertQueue()
}

func TestContract_DisconnectedPresenceForcesIdle(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))

	h.dir.setBotChannel(0)
	h.contract.OnPresenceChanged()
	h.sync()

	h.assertMode(domain.ModeIdle)
}

// waitingAlone drives a contract into Waiting and then empties its channel.
func waitingAlone(t *testing.T) *harness {
	t.Helper()

	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.contract.OnPlayerFinished("encoded-a")
	h.sync()
	h.assertMode(domain.ModeWaiting)

	h.dir.setMembers(testVoiceX)
	h.contract.OnPresenceChanged()
	h.sync()
	return h
}

func TestContract_WaitingInEmptyChannel(t *testing.T) {
	t.Run("enters standby", func(t *testing.T) {
		h := waitingAlone(t)

		h.assertMode(domain.ModeStandby)
		h.assertQueue()
		h.assertInvariants()
		if snapshot := h.contract.Snapshot(); snapshot.PrevMode != domain.ModeWaiting {
			t.Errorf("expected standby to be entered from waiting, got %v", snapshot.PrevMode)
		}
		if h.contract.Current() != nil {
			t.Error("expected nothing in flight")
		}

		h.advance(DefaultStandbyTimeout - time.Second)
		h.assertMode(domain.ModeStandby)

		h.advance(time.Second)
		h.assertMode(domain.ModeIdle)
		if h.voice.leaveCount() != 1 {
			t.Errorf("expected the voice channel to be left once, got %d", h.voice.leaveCount())
		}
	})

	t.Run("repopulation returns to waiting", func(t *testing.T) {
		h := waitingAlone(t)
		h.advance(DefaultStandbyTimeout / 2)

		h.dir.setMembers(testVoiceX, listener)
		h.contract.OnPresenceChanged()
		h.sync()

		h.assertMode(domain.ModeWaiting)
		h.assertInvariants()
		if snapshot := h.contract.Snapshot(); snapshot.PrevMode != domain.ModeStandby {
			t.Errorf("expected waiting to be entered from standby, got %v", snapshot.PrevMode)
		}

		// The full waiting timeout starts over.
		h.advance(DefaultWaitingTimeout - time.Second)
		h.assertMode(domain.ModeWaiting)

		h.advance(time.Second)
		h.assertMode(domain.ModeIdle)
	})

	t.Run("add plays", func(t *testing.T) {
		h := waitingAlone(t)
		h.dir.setMembers(testVoiceY, listener)

		result := h.add(h.request("b", testVoiceY))

		if result.Position != 0 || result.Mode != domain.ModePlaying {
			t.Fatalf("expected playing at position 0, got %+v", result)
		}
		h.assertQueue("b")
		h.assertInvariants()

		h.advance(DefaultStandbyTimeout)
		h.assertMode(domain.ModePlaying)
	})

	t.Run("nothing to skip", func(t *testing.T) {
		h := waitingAlone(t)

		if _, err := h.contract.Skip(t.Context(), 1); !errors.Is(err, ErrNotPlaying) {
			t.Errorf("expected ErrNotPlaying, got %v", err)
		}
		if _, err := h.contract.Remove(t.Context(), 0); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("expected ErrInvalidPosition, got %v", err)
		}
		h.assertMode(domain.ModeStandby)
	})
}

func TestContract_StaleTimerIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.add(h.request("a", testVoiceX))
	h.contract.OnPlayerFinished("encoded-a")
	h.sync()
	h.assertMode(domain.ModeWaiting)

	h.add(h.request("b", testVoiceX))
	h.assertMode(domain.ModePlaying)

	h.advance(DefaultWaitingTimeout)
	h.assertMode(domain.ModePlaying)
	h.assertQueue("b")
}

func TestContract_Move(t *testing.T) {
	t.Run("from idle starts waiting", func(t *testing.T) {
		h := newHarness(t)
		h.dir.setMembers(testVoiceY, listener)

		if err := h.contract.Move(t.Context(), testVoiceY); err != nil {
			t.Fatalf("unexpected move error: %v", err)
		}

		h.assertMode(domain.ModeWaiting)
		if channelID, _ := h.dir.BotVoiceChannel(testGuild); channelID != testVoiceY {
			t.Errorf("expected the bot in %v, got %v", testVoiceY, channelID)
		}
	})

	t.Run("retargets the request in flight", func(t *testing.T) {
		h := newHarness(t)
		h.dir.setMembers(testVoiceX, listener)
		h.dir.setMembers(testVoiceY, listener)
		h.add(h.request("a", testVoiceX))

		if err := h.contract.Move(t.Context(), testVoiceY); err != nil {
			t.Fatalf("unexpected move error: %v", err)
		}

		h.assertMode(domain.ModePlaying)
		if got := h.contract.Current().ChannelID(); got != testVoiceY {
			t.Errorf("expected request to target %v, got %v", testVoiceY, got)
		}
	})

	t.Run("rejects text channels", func(t *testing.T) {
		h := newHarness(t)

		if err := h.contract.Move(t.Context(), testText); !errors.Is(err, domain.ErrNonVoiceChannel) {
			t.Errorf("expected ErrNonVoiceChannel, got %v", err)
		}
		if err := h.contract.Move(t.Context(), testUnknown); !errors.Is(err, domain.ErrUnresolvedChannel) {
			t.Errorf("expected ErrUnresolvedChannel, got %v", err)
		}
		h.assertMode(domain.ModeIdle)
	})

	t.Run("same channel is a no-op", func(t *testing.T) {
		h := newHarness(t)
		h.dir.setMembers(testVoiceX, listener)
		h.add(h.request("a", testVoiceX))

		if err := h.contract.Move(t.Context(), testVoiceX); err != nil {
			t.Fatalf("unexpected move error: %v", err)
		}
		if len(h.voice.joins) != 1 {
			t.Errorf("expected a single join, got %v", h.voice.joins)
		}
	})
}

func TestContract_SetHomeID(t *testing.T) {
	h := newHarness(t)

	voice := testVoiceX
	if err := h.contract.SetHomeID(t.Context(), &voice); !errors.Is(err, domain.ErrNonTextChannel) {
		t.Errorf("expected ErrNonTextChannel, got %v", err)
	}

	if err := h.contract.SetHomeID(t.Context(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.contract.HomeID() != nil {
		t.Error("expected home channel to be unset")
	}

	text := testText
	if err := h.contract.SetHomeID(t.Context(), &text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.contract.HomeID(); got == nil || *got != testText {
		t.Errorf("expected home channel %v, got %v", testText, got)
	}
	settings, ok := h.settings.get(testGuild)
	if !ok || settings.HomeChannelID == nil || *settings.HomeChannelID != testText {
		t.Errorf("expected home channel to be persisted, got %+v", settings)
	}
}

func TestContract_UnresolvableHomeChannelIsUnset(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	h.dir.removeChannel(testText)

	h.add(h.request("a", testVoiceX))

	if nowPlaying, _, _ := h.notifier.counts(); nowPlaying != 0 {
		t.Errorf("expected no status message, got %d", nowPlaying)
	}
	if h.contract.HomeID() != nil {
		t.Error("expected home channel to be unset")
	}
	settings, ok := h.settings.get(testGuild)
	if !ok || settings.HomeChannelID != nil {
		t.Errorf("expected unset home channel to be persisted, got %+v", settings)
	}
}

func TestContract_Closed(t *testing.T) {
	h := newHarness(t)
	h.contract.Close()

	if _, err := h.contract.Add(t.Context(), h.request("a", testVoiceX), -1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestContract_AddWaitsForStartedTask(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	req := h.request("a", testVoiceX)
	started, release := h.player.block()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	type addOutcome struct {
		result AddResult
		err    error
	}
	done := make(chan addOutcome, 1)
	go func() {
		result, err := h.contract.Add(ctx, req, -1)
		done <- addOutcome{result, err}
	}()

	<-started
	<-ctx.Done()
	select {
	case out := <-done:
		t.Fatalf("expected Add to wait for its running task, returned %+v", out)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	out := <-done
	if out.err != nil {
		t.Fatalf("unexpected add error: %v", out.err)
	}
	if out.result.Mode != domain.ModePlaying || out.result.Position != 0 {
		t.Errorf("expected playing at position 0, got %+v", out.result)
	}
	h.assertQueue("a")
}

func TestContract_CancelledQueuedTaskIsDropped(t *testing.T) {
	h := newHarness(t)
	h.dir.setMembers(testVoiceX, listener)
	first := h.request("a", testVoiceX)
	second := h.request("b", testVoiceX)
	started, release := h.player.block()

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.contract.Add(context.Background(), first, -1)
		firstDone <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.contract.Add(ctx, second, -1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	h.sync()

	h.assertMode(domain.ModePlaying)
	h.assertQueue("a")
}
