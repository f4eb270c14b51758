package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/archive"
	"github.com/wicketpool/points-pipeline/internal/domain/bonus"
	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	"github.com/wicketpool/points-pipeline/internal/domain/player"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	"github.com/wicketpool/points-pipeline/internal/domain/rawdata"
	"github.com/wicketpool/points-pipeline/internal/domain/score"
	"github.com/wicketpool/points-pipeline/internal/domain/synclog"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// In-memory repositories shared by the service tests in this package. They
// are guarded because capture and live scoring fan work out to goroutines.

type memMatchRepo struct {
	mu      sync.Mutex
	matches map[string]match.Match

	pointsStatusCalls []match.PointsStatus
	claimDenied       map[string]bool
}

func newMemMatchRepo(items ...match.Match) *memMatchRepo {
	r := &memMatchRepo{
		matches:     make(map[string]match.Match),
		claimDenied: make(map[string]bool),
	}
	for _, m := range items {
		r.matches[m.ID] = m
	}
	return r
}

func (r *memMatchRepo) Create(_ context.Context, item match.Match) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.Provider == item.Provider && m.ExternalID == item.ExternalID {
			return false, nil
		}
	}
	r.matches[item.ID] = item
	return true, nil
}

func (r *memMatchRepo) GetByID(_ context.Context, id string) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	return m, ok, nil
}

func (r *memMatchRepo) ListTracked(_ context.Context) ([]match.Match, error) {
	return r.list(func(m match.Match) bool { return !m.CompletedAndCaptured }), nil
}

func (r *memMatchRepo) ListForCapture(_ context.Context) ([]match.Match, error) {
	return r.list(func(m match.Match) bool {
		return m.Status != match.StatusNotStarted && !m.CompletedAndCaptured
	}), nil
}

func (r *memMatchRepo) ListForAllocation(_ context.Context) ([]match.Match, error) {
	return r.list(func(m match.Match) bool {
		return m.Status == match.StatusCompleted && m.PointsStatus != match.PointsComplete
	}), nil
}

func (r *memMatchRepo) ListLive(_ context.Context) ([]match.Match, error) {
	return r.list(func(m match.Match) bool {
		return m.Status == match.StatusLive && m.CurrentlyLive
	}), nil
}

func (r *memMatchRepo) list(keep func(match.Match) bool) []match.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []match.Match
	for _, m := range r.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *memMatchRepo) UpdateState(_ context.Context, id string, status match.Status, statusText string, currentlyLive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.matches[id]
	m.Status = status
	m.StatusText = statusText
	m.CurrentlyLive = currentlyLive
	r.matches[id] = m
	return nil
}

func (r *memMatchRepo) SetPointsStatus(_ context.Context, id string, status match.PointsStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.matches[id]
	m.PointsStatus = status
	r.matches[id] = m
	r.pointsStatusCalls = append(r.pointsStatusCalls, status)
	return nil
}

func (r *memMatchRepo) MarkCaptured(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.matches[id]
	m.CompletedAndCaptured = true
	m.CurrentlyLive = false
	r.matches[id] = m
	return nil
}

func (r *memMatchRepo) Claim(_ context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimDenied[id] {
		return false, nil
	}
	m, ok := r.matches[id]
	if !ok {
		return false, nil
	}
	free := m.ClaimedBy == "" || m.ClaimedBy == owner ||
		(m.ClaimedAt != nil && m.ClaimedAt.Before(now.Add(-ttl)))
	if !free {
		return false, nil
	}
	m.ClaimedBy = owner
	m.ClaimedAt = &now
	r.matches[id] = m
	return true, nil
}

func (r *memMatchRepo) Release(_ context.Context, id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.matches[id]
	if m.ClaimedBy == owner {
		m.ClaimedBy = ""
		m.ClaimedAt = nil
		r.matches[id] = m
	}
	return nil
}

func (r *memMatchRepo) get(id string) match.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matches[id]
}

type memPerformanceRepo struct {
	mu   sync.Mutex
	rows map[string]performance.Record

	upserts       int
	markAllocated int
	failMarkFor   string
}

func newMemPerformanceRepo(items ...performance.Record) *memPerformanceRepo {
	r := &memPerformanceRepo{rows: make(map[string]performance.Record)}
	for _, item := range items {
		r.rows[item.MatchID+"|"+item.PlayerID] = item
	}
	return r
}

func (r *memPerformanceRepo) Get(_ context.Context, matchID, playerID string) (performance.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[matchID+"|"+playerID]
	return row, ok, nil
}

func (r *memPerformanceRepo) ListByMatch(_ context.Context, matchID string) ([]performance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []performance.Record
	for _, row := range r.rows {
		if row.MatchID == matchID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memPerformanceRepo) Upsert(_ context.Context, record performance.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[record.MatchID+"|"+record.PlayerID] = record
	r.upserts++
	return nil
}

func (r *memPerformanceRepo) MarkAllocated(_ context.Context, matchID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkFor == playerID {
		return errors.New("mark allocated forced failure")
	}
	row := r.rows[matchID+"|"+playerID]
	row.PointsAllocated = true
	r.rows[matchID+"|"+playerID] = row
	r.markAllocated++
	return nil
}

func (r *memPerformanceRepo) SetBonusAwards(_ context.Context, matchID, playerID string, playerOfTheMatch bool, hatTricks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[matchID+"|"+playerID]
	row.PlayerOfTheMatch = playerOfTheMatch
	row.HatTricks = hatTricks
	r.rows[matchID+"|"+playerID] = row
	return nil
}

func (r *memPerformanceRepo) get(matchID, playerID string) (performance.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[matchID+"|"+playerID]
	return row, ok
}

type memScoreRepo struct {
	mu      sync.Mutex
	records map[string]score.Record

	upserts     int
	liveDeletes int
	failFor     string
}

func newMemScoreRepo() *memScoreRepo {
	return &memScoreRepo{records: make(map[string]score.Record)}
}

func scoreKey(matchID, playerID string, gen score.Generation) string {
	return matchID + "|" + playerID + "|" + string(gen)
}

func (r *memScoreRepo) Upsert(_ context.Context, record score.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor == record.PlayerID {
		return errors.New("score write forced failure")
	}
	r.records[scoreKey(record.MatchID, record.PlayerID, record.Generation)] = record
	r.upserts++
	return nil
}

func (r *memScoreRepo) GetFinal(_ context.Context, matchID, playerID string) (score.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[scoreKey(matchID, playerID, score.GenerationFinal)]
	return record, ok, nil
}

func (r *memScoreRepo) DeleteLiveByMatch(_ context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, record := range r.records {
		if record.MatchID == matchID && record.Generation == score.GenerationLive {
			delete(r.records, key)
		}
	}
	r.liveDeletes++
	return nil
}

func (r *memScoreRepo) UpdateFinalBonus(_ context.Context, matchID, playerID string, bonusPoints, totalPoints int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scoreKey(matchID, playerID, score.GenerationFinal)
	record, ok := r.records[key]
	if !ok {
		return errors.New("no final score to update")
	}
	record.BonusPoints = bonusPoints
	record.TotalPoints = totalPoints
	r.records[key] = record
	return nil
}

func (r *memScoreRepo) get(matchID, playerID string, gen score.Generation) (score.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[scoreKey(matchID, playerID, gen)]
	return record, ok
}

type memBonusRepo struct {
	mu           sync.Mutex
	pending      []bonus.Correction
	placeholders []string
	captured     []int64
}

func (r *memBonusRepo) SeedPlaceholder(_ context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.placeholders {
		if existing == matchID {
			return nil
		}
	}
	r.placeholders = append(r.placeholders, matchID)
	return nil
}

// addPending mirrors the store's one-uncaptured-row-per-(match, player) rule;
// a duplicate is dropped rather than queued twice.
func (r *memBonusRepo) addPending(c bonus.Correction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.pending {
		if existing.MatchID == c.MatchID && existing.PlayerID == c.PlayerID {
			return false
		}
	}
	r.pending = append(r.pending, c)
	return true
}

func (r *memBonusRepo) ListPending(_ context.Context) ([]bonus.Correction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bonus.Correction, len(r.pending))
	copy(out, r.pending)
	return out, nil
}

func (r *memBonusRepo) MarkCaptured(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, id)
	for i := range r.pending {
		if r.pending[i].ID == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	return nil
}

type memPointsConfigRepo struct {
	configs map[string]points.Config
	err     error
}

func (r *memPointsConfigRepo) GetByTournament(_ context.Context, tournamentID string) (points.Config, bool, error) {
	if r.err != nil {
		return points.Config{}, false, r.err
	}
	cfg, ok := r.configs[tournamentID]
	return cfg, ok, nil
}

type memArchiveRepo struct {
	mu        sync.Mutex
	snapshots []archive.Snapshot
}

func (r *memArchiveRepo) Insert(_ context.Context, snapshot archive.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.snapshots {
		if existing.MatchID == snapshot.MatchID && existing.SnapshotType == snapshot.SnapshotType {
			return archive.ErrDuplicate
		}
	}
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

type memRawDataRepo struct {
	mu       sync.Mutex
	payloads map[string]rawdata.Payload
}

func newMemRawDataRepo() *memRawDataRepo {
	return &memRawDataRepo{payloads: make(map[string]rawdata.Payload)}
}

func (r *memRawDataRepo) Upsert(_ context.Context, item rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads[item.MatchID] = item
	return nil
}

func (r *memRawDataRepo) GetByMatch(_ context.Context, matchID string) (rawdata.Payload, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.payloads[matchID]
	return item, ok, nil
}

type memSyncLogRepo struct {
	mu      sync.Mutex
	entries []synclog.Entry
}

func (r *memSyncLogRepo) Insert(_ context.Context, entry synclog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type memPlayerRepo struct {
	mu      sync.Mutex
	players map[string]player.Player
	upserts int
}

func newMemPlayerRepo(items ...player.Player) *memPlayerRepo {
	r := &memPlayerRepo{players: make(map[string]player.Player)}
	for _, p := range items {
		r.players[p.TournamentID+"|"+p.Provider+"|"+p.ExternalID] = p
	}
	return r
}

func (r *memPlayerRepo) GetByExternalID(_ context.Context, tournamentID, provider, externalID string) (player.Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[tournamentID+"|"+provider+"|"+externalID]
	return p, ok, nil
}

func (r *memPlayerRepo) Upsert(_ context.Context, item player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[item.TournamentID+"|"+item.Provider+"|"+item.ExternalID] = item
	r.upserts++
	return nil
}

type fixedIDGen struct {
	mu   sync.Mutex
	next int
}

func (g *fixedIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "gen-" + string(rune('0'+g.next)), nil
}

// stubProvider satisfies ScorecardProvider with canned responses.
type stubProvider struct {
	name string

	scorecards map[string]ExternalScorecard
	scoreErr   error

	details   map[string]ExternalPlayerDetail
	detailErr error

	current    []ExternalMatchState
	currentErr error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchScorecard(_ context.Context, externalID string) (ExternalScorecard, error) {
	if p.scoreErr != nil {
		return ExternalScorecard{}, p.scoreErr
	}
	return p.scorecards[externalID], nil
}

func (p *stubProvider) FetchPlayerDetail(_ context.Context, externalID string) (ExternalPlayerDetail, error) {
	if p.detailErr != nil {
		return ExternalPlayerDetail{}, p.detailErr
	}
	return p.details[externalID], nil
}

func (p *stubProvider) FetchCurrentMatches(_ context.Context) ([]ExternalMatchState, error) {
	if p.currentErr != nil {
		return nil, p.currentErr
	}
	return p.current, nil
}

func testRunLogger() (*RunLogger, *memSyncLogRepo) {
	repo := &memSyncLogRepo{}
	return NewRunLogger(repo, &fixedIDGen{}, logging.NewNop()), repo
}
