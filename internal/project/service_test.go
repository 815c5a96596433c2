package project

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/storage"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/SlpAus/qa-raffle-backend/pkg/isotime"
	"gorm.io/gorm"
)

var ctxBG = context.Background()

var (
	manager = user.Identity{ID: 1, ManagePermission: true}
	rival   = user.Identity{ID: 2, ManagePermission: true}
	player  = user.Identity{ID: 3}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Sqlite: config.SqliteConfig{Path: "file::memory:"}, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeImageStore struct {
	key  string
	body []byte
}

func (f *fakeImageStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	f.key = key
	f.body, _ = io.ReadAll(r)
	return "https://cdn.test/prizes/" + key, nil
}

func newTestService(t *testing.T, images *fakeImageStore) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	var store storage.ImageStore
	if images != nil {
		store = images
	}
	return NewService(NewRepository(db), store, 3), db
}

func mustCreateProject(t *testing.T, s *Service, deadline time.Time) *Project {
	t.Helper()
	p, err := s.CreateProject(ctxBG, manager, ProjectInput{Name: "quiz", Deadline: isotime.From(deadline)})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func TestCreateProjectRequiresManager(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, err := s.CreateProject(ctxBG, player, ProjectInput{Name: "x", Deadline: isotime.From(time.Now().Add(time.Hour))})
	if !errors.Is(err, ErrNotManager) {
		t.Fatalf("CreateProject(player) error = %v, want ErrNotManager", err)
	}

	p := mustCreateProject(t, s, time.Now().Add(time.Hour))
	if p.Status != StatusDraft || p.CreaterID != manager.ID {
		t.Fatalf("unexpected project %+v", p)
	}
}

func TestPublishAndDeadlineTransitions(t *testing.T) {
	s, _ := newTestService(t, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	p := mustCreateProject(t, s, now.Add(time.Hour))

	if _, err := s.Publish(ctxBG, rival, p.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Publish(rival) error = %v, want ErrNotOwner", err)
	}
	published, err := s.Publish(ctxBG, manager, p.ID)
	if err != nil || published.Status != StatusPublished {
		t.Fatalf("Publish() = %+v, %v", published, err)
	}
	if _, err := s.Publish(ctxBG, manager, p.ID); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("second Publish() error = %v, want ErrNotDraft", err)
	}

	now = now.Add(2 * time.Hour)
	content, err := s.OwnedContent(ctxBG, manager, p.ID)
	if err != nil || content.Project.Status != StatusExpired {
		t.Fatalf("after deadline status = %v, %v; want expired", content.Project.Status, err)
	}

	extended := isotime.From(now.Add(24 * time.Hour))
	updated, err := s.UpdateProject(ctxBG, manager, p.ID, ProjectPatch{Deadline: &extended})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if updated.Status != StatusPublished {
		t.Fatalf("status after extending deadline = %v, want published", updated.Status)
	}
}

func TestPublishPastDeadlineExpiresImmediately(t *testing.T) {
	s, _ := newTestService(t, nil)
	p := mustCreateProject(t, s, time.Now().Add(-time.Hour))
	published, err := s.Publish(ctxBG, manager, p.ID)
	if err != nil || published.Status != StatusExpired {
		t.Fatalf("Publish() = %v, %v; want expired", published.Status, err)
	}
}

func TestUpdateFieldsDoesNotOverwriteConcurrentPublish(t *testing.T) {
	s, _ := newTestService(t, nil)
	p := mustCreateProject(t, s, time.Now().Add(time.Hour))

	// 编辑方读到草稿后，发布先一步提交
	stale := *p
	if _, err := s.Publish(ctxBG, manager, p.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	stale.Name = "renamed"
	stale.Evaluate(time.Now())
	ok, err := s.repo.UpdateProjectFields(ctxBG, &stale, StatusDraft)
	if err != nil || ok {
		t.Fatalf("UpdateProjectFields(stale) = %v, %v; want false, nil", ok, err)
	}
	got, err := s.repo.GetProject(ctxBG, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Status != StatusPublished || got.Name != "quiz" {
		t.Fatalf("project after stale update = %v %q, want published quiz", got.Status, got.Name)
	}

	name := "renamed"
	updated, err := s.UpdateProject(ctxBG, manager, p.ID, ProjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if updated.Status != StatusPublished || updated.Name != "renamed" {
		t.Fatalf("UpdateProject() = %v %q, want published renamed", updated.Status, updated.Name)
	}
}

func TestPrizeAmountEdits(t *testing.T) {
	s, db := newTestService(t, nil)
	p := mustCreateProject(t, s, time.Now().Add(time.Hour))
	prize, err := s.AddPrize(ctxBG, manager, PrizeInput{ProjectID: p.ID, Name: "mug", Amount: 20})
	if err != nil {
		t.Fatalf("AddPrize() error = %v", err)
	}
	if prize.Level != ConsolationLevel || prize.Remain != 20 {
		t.Fatalf("AddPrize() = %+v", prize)
	}
	// two prizes already drawn
	if err := db.Model(&Prize{}).Where("id = ?", prize.ID).Update("remain", 18).Error; err != nil {
		t.Fatalf("set remain: %v", err)
	}

	amount := func(n int) *int { return &n }
	tests := []struct {
		name       string
		amount     int
		wantRemain int
		wantErr    error
	}{
		{"shrink keeps consumed count", 15, 13, nil},
		{"shrink to exactly consumed", 2, 0, nil},
		{"shrink below consumed", 1, 0, ErrAmountBelowConsumed},
		{"grow again", 10, 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdatePrize(ctxBG, manager, prize.ID, PrizePatch{Amount: amount(tt.amount)})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !apperror.IsKind(err, apperror.KindInvalidState) {
					t.Fatalf("UpdatePrize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdatePrize() error = %v", err)
			}
			if got.Remain != tt.wantRemain || got.Amount != tt.amount {
				t.Fatalf("UpdatePrize() = amount %d remain %d, want %d/%d", got.Amount, got.Remain, tt.amount, tt.wantRemain)
			}
		})
	}

	var stored Prize
	db.First(&stored, prize.ID)
	if stored.Amount != 10 || stored.Remain != 8 {
		t.Fatalf("stored prize = %+v", stored)
	}
}

func TestApplyAmount(t *testing.T) {
	p := Prize{Amount: 20, Remain: 18}
	if err := p.ApplyAmount(15); err != nil || p.Remain != 13 {
		t.Fatalf("ApplyAmount(15) = %d, %v", p.Remain, err)
	}
	p = Prize{Amount: 20, Remain: 18}
	if err := p.ApplyAmount(1); !errors.Is(err, ErrAmountBelowConsumed) || p.Amount != 20 {
		t.Fatalf("ApplyAmount(1) error = %v, prize = %+v", err, p)
	}
}

func TestQuestionOwnershipAndValidation(t *testing.T) {
	s, _ := newTestService(t, nil)
	p := mustCreateProject(t, s, time.Now().Add(time.Hour))

	in := QuestionInput{ProjectID: p.ID, Q: "1+1?", O1: "1", O2: "2", O3: "3", O4: "4", A: 2}
	if _, err := s.AddQuestion(ctxBG, rival, in); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("AddQuestion(rival) error = %v", err)
	}
	q, err := s.AddQuestion(ctxBG, manager, in)
	if err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}

	bad := 5
	if _, err := s.UpdateQuestion(ctxBG, manager, q.ID, QuestionPatch{A: &bad}); !apperror.IsKind(err, apperror.KindInvalidState) {
		t.Fatalf("UpdateQuestion(a=5) error = %v", err)
	}
	text := "2+2?"
	four := 4
	updated, err := s.UpdateQuestion(ctxBG, manager, q.ID, QuestionPatch{Q: &text, A: &four})
	if err != nil || updated.Q != text || updated.A != 4 || updated.O1 != "1" {
		t.Fatalf("UpdateQuestion() = %+v, %v", updated, err)
	}

	if err := s.DeleteQuestion(ctxBG, player, q.ID); !errors.Is(err, ErrNotManager) {
		t.Fatalf("DeleteQuestion(player) error = %v", err)
	}
	if err := s.DeleteQuestion(ctxBG, manager, q.ID); err != nil {
		t.Fatalf("DeleteQuestion() error = %v", err)
	}
	if _, err := s.UpdateQuestion(ctxBG, manager, q.ID, QuestionPatch{}); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("UpdateQuestion(deleted) error = %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s, db := newTestService(t, nil)
	p := mustCreateProject(t, s, time.Now().Add(time.Hour))
	if _, err := s.AddQuestion(ctxBG, manager, QuestionInput{ProjectID: p.ID, Q: "q", O1: "a", O2: "b", O3: "c", O4: "d", A: 1}); err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}
	if _, err := s.AddPrize(ctxBG, manager, PrizeInput{ProjectID: p.ID, Name: "pen", Amount: 3}); err != nil {
		t.Fatalf("AddPrize() error = %v", err)
	}

	if err := s.DeleteProject(ctxBG, rival, p.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("DeleteProject(rival) error = %v", err)
	}
	if err := s.DeleteProject(ctxBG, manager, p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	var questions, prizes int64
	db.Model(&Question{}).Where("project_id = ?", p.ID).Count(&questions)
	db.Model(&Prize{}).Where("project_id = ?", p.ID).Count(&prizes)
	if questions != 0 || prizes != 0 {
		t.Fatalf("cascade left %d questions and %d prizes", questions, prizes)
	}
	if _, err := s.OwnedContent(ctxBG, manager, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("OwnedContent(deleted) error = %v", err)
	}
}

func TestListMinePaginates(t *testing.T) {
	s, _ := newTestService(t, nil)
	for i := 0; i < 3; i++ {
		mustCreateProject(t, s, time.Now().Add(time.Hour))
	}
	if _, err := s.CreateProject(ctxBG, rival, ProjectInput{Name: "other", Deadline: isotime.From(time.Now())}); err != nil {
		t.Fatalf("CreateProject(rival) error = %v", err)
	}

	page, err := s.ListMine(ctxBG, manager, Pagination{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].ID < page.Items[1].ID {
		t.Fatalf("ListMine() = %+v", page)
	}
	page, _ = s.ListMine(ctxBG, manager, Pagination{Page: 2, Size: 2})
	if len(page.Items) != 1 {
		t.Fatalf("second page has %d items", len(page.Items))
	}
}

func TestUploadPrizeImage(t *testing.T) {
	images := &fakeImageStore{}
	s, db := newTestService(t, images)
	p := mustCreateProject(t, s, time.Now().Add(time.Hour))
	prize, err := s.AddPrize(ctxBG, manager, PrizeInput{ProjectID: p.ID, Name: "pen", Amount: 1})
	if err != nil {
		t.Fatalf("AddPrize() error = %v", err)
	}

	got, err := s.UploadPrizeImage(ctxBG, manager, prize.ID, "Pen.PNG", bytes.NewReader([]byte("png")), 3, "image/png")
	if err != nil {
		t.Fatalf("UploadPrizeImage() error = %v", err)
	}
	if got.Image == nil || *got.Image != "https://cdn.test/prizes/"+images.key || string(images.body) != "png" {
		t.Fatalf("UploadPrizeImage() = %+v, key %q", got, images.key)
	}
	var stored Prize
	db.First(&stored, prize.ID)
	if stored.Image == nil || *stored.Image != *got.Image {
		t.Fatalf("stored image = %v", stored.Image)
	}

	disabled, _ := newTestService(t, nil)
	if _, err := disabled.UploadPrizeImage(ctxBG, manager, prize.ID, "a.png", bytes.NewReader(nil), 0, ""); !errors.Is(err, ErrImageStoreDisabled) {
		t.Fatalf("UploadPrizeImage(disabled) error = %v", err)
	}
}
