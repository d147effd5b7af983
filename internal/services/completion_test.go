package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dr-rompecabezas/lms-backend/internal/db"
	"github.com/dr-rompecabezas/lms-backend/internal/repos"
	"github.com/dr-rompecabezas/lms-backend/internal/types"
)

// testDB opens a per-test in-memory sqlite database with the full schema.
// cache=shared keeps the database alive across gorm's pooled connections.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	if err := db.MigrateAll(gdb); err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	return gdb
}

func newCompletionService(t *testing.T, gdb *gorm.DB) CompletionService {
	t.Helper()
	log := testLogger(t)
	return NewCompletionService(
		repos.NewCourseRepo(gdb, log),
		repos.NewLessonRepo(gdb, log),
		repos.NewEnrollmentRepo(gdb, log),
		repos.NewLessonCompletionRepo(gdb, log),
		repos.NewH5PAttemptRepo(gdb, log),
		log,
	)
}

type completionFixture struct {
	user       *types.User
	course     *types.Course
	lessons    []*types.Lesson
	activities []*types.H5PActivity
}

// seedCompletionFixture builds an enrolled user and a live course with one
// H5P activity per lesson.
func seedCompletionFixture(t *testing.T, gdb *gorm.DB, lessonCount int) *completionFixture {
	t.Helper()
	now := time.Now()

	user := &types.User{ID: uuid.New(), Email: "learner@example.com", Password: "x"}
	course := &types.Course{ID: uuid.New(), Title: "Anatomy", Live: true}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := gdb.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}

	fx := &completionFixture{user: user, course: course}
	for i := 0; i < lessonCount; i++ {
		lesson := &types.Lesson{
			ID:       uuid.New(),
			CourseID: course.ID,
			Title:    fmt.Sprintf("Lesson %d", i+1),
			Position: i,
			Live:     true,
		}
		activity := &types.H5PActivity{
			ID:          uuid.New(),
			Title:       fmt.Sprintf("Quiz %d", i+1),
			PackageFile: fmt.Sprintf("h5p_packages/quiz-%d.h5p", i+1),
		}
		if err := gdb.Create(lesson).Error; err != nil {
			t.Fatalf("create lesson: %v", err)
		}
		if err := gdb.Create(activity).Error; err != nil {
			t.Fatalf("create activity: %v", err)
		}
		link := &types.LessonActivity{
			ID:         uuid.New(),
			LessonID:   lesson.ID,
			ActivityID: activity.ID,
		}
		if err := gdb.Create(link).Error; err != nil {
			t.Fatalf("create lesson activity: %v", err)
		}
		fx.lessons = append(fx.lessons, lesson)
		fx.activities = append(fx.activities, activity)
	}

	enrollment := &types.Enrollment{
		ID:         uuid.New(),
		UserID:     user.ID,
		CourseID:   course.ID,
		EnrolledAt: now,
	}
	if err := gdb.Create(enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	return fx
}

func completeActivity(t *testing.T, gdb *gorm.DB, userID, activityID uuid.UUID) {
	t.Helper()
	attempt := &types.H5PAttempt{
		ID:               uuid.New(),
		UserID:           userID,
		ActivityID:       activityID,
		StartedAt:        time.Now(),
		LastAccessed:     time.Now(),
		CompletionStatus: types.CompletionCompleted,
		SuccessStatus:    types.SuccessUnknown,
	}
	if err := gdb.Create(attempt).Error; err != nil {
		t.Fatalf("create attempt: %v", err)
	}
}

func loadEnrollment(t *testing.T, gdb *gorm.DB, userID, courseID uuid.UUID) *types.Enrollment {
	t.Helper()
	var e types.Enrollment
	if err := gdb.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error; err != nil {
		t.Fatalf("load enrollment: %v", err)
	}
	return &e
}

func TestCompletionAggregatesLessonsIntoCourse(t *testing.T) {
	gdb := testDB(t)
	fx := seedCompletionFixture(t, gdb, 2)
	svc := newCompletionService(t, gdb)
	ctx := context.Background()

	completeActivity(t, gdb, fx.user.ID, fx.activities[0].ID)
	if err := svc.OnActivityCompleted(ctx, fx.user.ID, fx.activities[0].ID); err != nil {
		t.Fatalf("OnActivityCompleted: %v", err)
	}

	var lessonDone int64
	gdb.Model(&types.LessonCompletion{}).
		Where("user_id = ? AND lesson_id = ?", fx.user.ID, fx.lessons[0].ID).
		Count(&lessonDone)
	if lessonDone != 1 {
		t.Fatalf("lesson completions = %d, want 1", lessonDone)
	}
	if e := loadEnrollment(t, gdb, fx.user.ID, fx.course.ID); e.CompletedAt != nil {
		t.Fatal("course completed with one of two lessons done")
	}

	completeActivity(t, gdb, fx.user.ID, fx.activities[1].ID)
	if err := svc.OnActivityCompleted(ctx, fx.user.ID, fx.activities[1].ID); err != nil {
		t.Fatalf("OnActivityCompleted: %v", err)
	}
	e := loadEnrollment(t, gdb, fx.user.ID, fx.course.ID)
	if e.CompletedAt == nil {
		t.Fatal("course not completed with all lessons done")
	}
	first := *e.CompletedAt

	// Re-delivered events must not move the completion timestamp.
	if err := svc.OnActivityCompleted(ctx, fx.user.ID, fx.activities[1].ID); err != nil {
		t.Fatalf("OnActivityCompleted: %v", err)
	}
	e = loadEnrollment(t, gdb, fx.user.ID, fx.course.ID)
	if e.CompletedAt == nil || !e.CompletedAt.Equal(first) {
		t.Errorf("completed_at moved from %v to %v", first, e.CompletedAt)
	}

	var lessonRows int64
	gdb.Model(&types.LessonCompletion{}).Where("user_id = ?", fx.user.ID).Count(&lessonRows)
	if lessonRows != 2 {
		t.Errorf("lesson completion rows = %d, want 2", lessonRows)
	}
}

func TestCompletionSkipsUnenrolledUser(t *testing.T) {
	gdb := testDB(t)
	fx := seedCompletionFixture(t, gdb, 1)
	svc := newCompletionService(t, gdb)
	ctx := context.Background()

	stranger := &types.User{ID: uuid.New(), Email: "stranger@example.com", Password: "x"}
	if err := gdb.Create(stranger).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	completeActivity(t, gdb, stranger.ID, fx.activities[0].ID)
	if err := svc.OnActivityCompleted(ctx, stranger.ID, fx.activities[0].ID); err != nil {
		t.Fatalf("OnActivityCompleted: %v", err)
	}

	var rows int64
	gdb.Model(&types.LessonCompletion{}).Where("user_id = ?", stranger.ID).Count(&rows)
	if rows != 0 {
		t.Errorf("lesson completion rows = %d, want 0 for unenrolled user", rows)
	}
}

func TestCompleteScormPackageIdempotent(t *testing.T) {
	gdb := testDB(t)
	svc := newCompletionService(t, gdb)
	ctx := context.Background()

	user := &types.User{ID: uuid.New(), Email: "learner@example.com", Password: "x"}
	pkg := &types.ScormPackage{ID: uuid.New(), Title: "Safety", PackageFile: "scorm_packages/safety.zip"}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := gdb.Create(pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	course := &types.Course{ID: uuid.New(), Title: "Safety", Live: true, ScormPackageID: &pkg.ID}
	if err := gdb.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	enrollment := &types.Enrollment{ID: uuid.New(), UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}
	if err := gdb.Create(enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}

	if err := svc.CompleteScormPackage(ctx, user.ID, pkg.ID); err != nil {
		t.Fatalf("CompleteScormPackage: %v", err)
	}
	e := loadEnrollment(t, gdb, user.ID, course.ID)
	if e.CompletedAt == nil {
		t.Fatal("enrollment not completed")
	}
	first := *e.CompletedAt

	if err := svc.CompleteScormPackage(ctx, user.ID, pkg.ID); err != nil {
		t.Fatalf("CompleteScormPackage: %v", err)
	}
	e = loadEnrollment(t, gdb, user.ID, course.ID)
	if e.CompletedAt == nil || !e.CompletedAt.Equal(first) {
		t.Errorf("completed_at moved from %v to %v", first, e.CompletedAt)
	}

	// A package detached from any course is a no-op, not an error.
	if err := svc.CompleteScormPackage(ctx, user.ID, uuid.New()); err != nil {
		t.Fatalf("CompleteScormPackage for orphan package: %v", err)
	}
}
