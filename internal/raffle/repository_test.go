package raffle

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
)

func TestAppendResultRejectsStaleVersion(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, project.StatusPublished, future(), nil, project.Prize{Name: "pen", Amount: 5, Remain: 5})
	records := NewRepository(f.db)

	rec := &Record{UserID: f.alice.ID, ProjectID: c.Project.ID, RaffleTimes: 2}
	if err := records.Create(ctxBG, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stale := *rec

	now := time.Now()
	ok, err := records.AppendResult(ctxBG, rec, c.Prizes[0].ID, now)
	if err != nil || !ok {
		t.Fatalf("AppendResult() = %v, %v; want true", ok, err)
	}
	if rec.Version != 1 {
		t.Fatalf("version = %d, want 1", rec.Version)
	}

	ok, err = records.AppendResult(ctxBG, &stale, c.Prizes[0].ID, now)
	if err != nil || ok {
		t.Fatalf("AppendResult(stale) = %v, %v; want false", ok, err)
	}
	ok, err = records.SetClaimStatus(ctxBG, &stale, true)
	if err != nil || ok {
		t.Fatalf("SetClaimStatus(stale) = %v, %v; want false", ok, err)
	}

	got, err := records.Get(ctxBG, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.RaffleResult) != 1 || got.Version != 1 || got.PrizeClaimStatus {
		t.Fatalf("stored record = %+v", got)
	}
}

func TestDecrementRemainStopsAtZero(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, project.StatusPublished, future(), nil, project.Prize{Name: "pen", Amount: 1, Remain: 1})
	id := c.Prizes[0].ID

	ok, err := f.projects.DecrementRemain(ctxBG, id)
	if err != nil || !ok {
		t.Fatalf("DecrementRemain() = %v, %v; want true", ok, err)
	}
	ok, err = f.projects.DecrementRemain(ctxBG, id)
	if err != nil || ok {
		t.Fatalf("DecrementRemain() at zero = %v, %v; want false", ok, err)
	}
	if f.remain(t, id) != 0 {
		t.Fatalf("remain = %d, want 0", f.remain(t, id))
	}
}

func TestCreateDuplicateRecordIsDuplicateKey(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, project.StatusPublished, future(), nil, project.Prize{Name: "pen", Amount: 1, Remain: 1})
	records := NewRepository(f.db)

	if err := records.Create(ctxBG, &Record{UserID: f.alice.ID, ProjectID: c.Project.ID}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := records.Create(ctxBG, &Record{UserID: f.alice.ID, ProjectID: c.Project.ID})
	if err == nil || !database.IsDuplicateKeyError(err) {
		t.Fatalf("second Create() error = %v, want duplicate key", err)
	}
}

func TestDrawsOverSeveralConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.db")
	f := openFixture(t, config.DatabaseConfig{
		Driver:       "sqlite",
		Sqlite:       config.SqliteConfig{Path: "file:" + path + "?_busy_timeout=5000"},
		MaxOpenConns: 8,
	}, 20)

	const stock = 5
	c := f.seed(t, project.StatusPublished, future(), nil, project.Prize{Name: "phone", Level: 1, Amount: stock, Remain: stock})
	pid := c.Project.ID

	users := user.NewRepository(f.db)
	var players []user.Identity
	for i := 0; i < 20; i++ {
		u := &user.User{Username: "m" + string(rune('a'+i)), HashedPassword: "x"}
		if err := users.Create(ctxBG, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		players = append(players, u.Identity())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	var unexpected []error
	for _, p := range players {
		wg.Add(1)
		go func(id user.Identity) {
			defer wg.Done()
			_, err := f.svc.Draw(ctxBG, id, DrawInput{ProjectID: pid})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrNoEligiblePrize), apperror.KindOf(err) == apperror.KindConflict:
			default:
				unexpected = append(unexpected, err)
			}
		}(p)
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected draw errors: %v", unexpected)
	}
	remain := f.remain(t, c.Prizes[0].ID)
	if remain < 0 || wins == 0 || wins+remain != stock {
		t.Fatalf("wins=%d remain=%d, want wins+remain=%d", wins, remain, stock)
	}
	var rows int64
	if err := f.db.Model(&Record{}).Where("project_id = ?", pid).Count(&rows).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if int(rows) != wins {
		t.Fatalf("records = %d, want one per win (%d)", rows, wins)
	}
}
