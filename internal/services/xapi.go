package services

import (
  "context"
  "encoding/json"
  "sort"
  "strconv"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

// Verb IRIs H5P content is known to emit. Everything else is logged
// verbatim but drives no attempt update.
const (
  verbCompleted = "http://adlnet.gov/expapi/verbs/completed"
  verbPassed    = "http://adlnet.gov/expapi/verbs/passed"
  verbMastered  = "http://adlnet.gov/expapi/verbs/mastered"
  verbFailed    = "http://adlnet.gov/expapi/verbs/failed"
  verbAnswered  = "http://adlnet.gov/expapi/verbs/answered"
  verbScored    = "http://adlnet.gov/expapi/verbs/scored"
  verbConsumed  = "http://activitystrea.ms/schema/1.0/consume"
)

// XapiValidationError is a client-side statement problem: the request is
// rejected but nothing is persisted.
type XapiValidationError struct {
  Message string
}

func (e *XapiValidationError) Error() string { return e.Message }

// XapiIngestResult reports what one statement did to the attempt.
type XapiIngestResult struct {
  Attempt        *types.H5PAttempt
  MarkedComplete bool
}

type XapiService interface {
  // Ingest validates one xAPI statement, appends it to the audit log,
  // folds its verb and score into the attempt, and propagates lesson and
  // course completion when the statement marks the activity complete.
  Ingest(ctx context.Context, userID, activityID uuid.UUID, raw []byte) (*XapiIngestResult, error)
}

type xapiService struct {
  gdb           *gorm.DB
  attemptRepo   repos.H5PAttemptRepo
  statementRepo repos.XapiStatementRepo
  completion    CompletionService
  log           *logger.Logger
}

func NewXapiService(
  gdb *gorm.DB,
  attemptRepo repos.H5PAttemptRepo,
  statementRepo repos.XapiStatementRepo,
  completion CompletionService,
  baseLog *logger.Logger,
) XapiService {
  return &xapiService{
    gdb:           gdb,
    attemptRepo:   attemptRepo,
    statementRepo: statementRepo,
    completion:    completion,
    log:           baseLog.With("service", "XapiService"),
  }
}

// parsedStatement is the statement subset the ingestor acts on.
type parsedStatement struct {
  VerbID      string
  VerbDisplay string
  TopLevel    bool
  Score       map[string]float64
}

func asObject(v interface{}) (map[string]interface{}, bool) {
  m, ok := v.(map[string]interface{})
  return m, ok
}

// parseStatement validates statement shape. The statement itself, its verb
// and (when present) its result must be JSON objects.
func parseStatement(raw []byte) (*parsedStatement, error) {
  var root interface{}
  if err := json.Unmarshal(raw, &root); err != nil {
    return nil, &XapiValidationError{Message: "statement is not valid JSON"}
  }
  stmt, ok := asObject(root)
  if !ok {
    return nil, &XapiValidationError{Message: "statement must be a JSON object"}
  }

  verb, ok := asObject(stmt["verb"])
  if !ok {
    return nil, &XapiValidationError{Message: "statement verb must be a JSON object"}
  }
  // A verb without an id is stored with an empty IRI; it drives no
  // attempt update but still lands in the audit log.
  verbID, _ := verb["id"].(string)

  parsed := &parsedStatement{
    VerbID:   verbID,
    TopLevel: isTopLevel(stmt),
  }

  if display, ok := asObject(verb["display"]); ok && len(display) > 0 {
    // Map order is unspecified; sort for a stable pick.
    langs := make([]string, 0, len(display))
    for lang := range display {
      langs = append(langs, lang)
    }
    sort.Strings(langs)
    if v, ok := display[langs[0]].(string); ok {
      parsed.VerbDisplay = v
    }
  }

  if rawResult, present := stmt["result"]; present {
    result, ok := asObject(rawResult)
    if !ok {
      return nil, &XapiValidationError{Message: "statement result must be a JSON object"}
    }
    if score, ok := asObject(result["score"]); ok {
      parsed.Score = map[string]float64{}
      for _, field := range []string{"raw", "max", "min", "scaled"} {
        if f, ok := scoreNumber(score[field]); ok {
          parsed.Score[field] = f
        }
      }
    }
  }
  return parsed, nil
}

// scoreNumber accepts JSON numbers and numeric strings; anything else is
// ignored rather than rejected.
func scoreNumber(v interface{}) (float64, bool) {
  switch t := v.(type) {
  case float64:
    return t, true
  case string:
    f, err := strconv.ParseFloat(t, 64)
    return f, err == nil
  }
  return 0, false
}

// isTopLevel reports whether the statement describes the activity itself
// rather than a nested sub-content interaction. A statement is nested
// exactly when context.contextActivities.parent is present and non-empty.
func isTopLevel(stmt map[string]interface{}) bool {
  ctx, ok := asObject(stmt["context"])
  if !ok {
    return true
  }
  contextActivities, ok := asObject(ctx["contextActivities"])
  if !ok {
    return true
  }
  switch parent := contextActivities["parent"].(type) {
  case []interface{}:
    return len(parent) == 0
  case map[string]interface{}:
    return len(parent) == 0
  case nil:
    return true
  }
  return false
}

// attemptUpdates maps a parsed statement onto attempt column updates and
// reports whether the statement completes the activity.
func attemptUpdates(parsed *parsedStatement) (map[string]interface{}, bool) {
  fields := map[string]interface{}{"last_accessed": time.Now()}
  completes := false
  scoreBearing := false

  switch parsed.VerbID {
  case verbCompleted, verbConsumed:
    fields["completion_status"] = types.CompletionCompleted
    completes = true
    scoreBearing = true
  case verbPassed, verbMastered:
    fields["completion_status"] = types.CompletionCompleted
    fields["success_status"] = types.SuccessPassed
    completes = true
    scoreBearing = true
  case verbFailed:
    fields["completion_status"] = types.CompletionCompleted
    fields["success_status"] = types.SuccessFailed
    completes = true
    scoreBearing = true
  case verbAnswered:
    // Answers on nested sub-content are auditable but do not complete
    // the activity.
    if parsed.TopLevel {
      fields["completion_status"] = types.CompletionCompleted
      completes = true
      scoreBearing = true
    }
  case verbScored:
    scoreBearing = true
  }

  if scoreBearing && parsed.Score != nil {
    columns := map[string]string{
      "raw":    "score_raw",
      "max":    "score_max",
      "min":    "score_min",
      "scaled": "score_scaled",
    }
    for field, column := range columns {
      if v, ok := parsed.Score[field]; ok {
        fields[column] = v
      }
    }
  }
  return fields, completes
}

func (s *xapiService) Ingest(ctx context.Context, userID, activityID uuid.UUID, raw []byte) (*XapiIngestResult, error) {
  parsed, err := parseStatement(raw)
  if err != nil {
    return nil, err
  }

  fields, completes := attemptUpdates(parsed)

  var attempt *types.H5PAttempt
  err = db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    var txErr error
    attempt, _, txErr = s.attemptRepo.GetOrCreate(ctx, tx, userID, activityID)
    if txErr != nil {
      return txErr
    }

    statement := &types.XapiStatement{
      ID:          uuid.New(),
      AttemptID:   attempt.ID,
      Verb:        parsed.VerbID,
      VerbDisplay: parsed.VerbDisplay,
      Statement:   raw,
      CreatedAt:   time.Now(),
    }
    if _, txErr = s.statementRepo.Create(ctx, tx, statement); txErr != nil {
      return txErr
    }
    return s.attemptRepo.Updates(ctx, tx, attempt.ID, fields)
  })
  if err != nil {
    return nil, err
  }

  s.log.Debug("Ingested xAPI statement",
    "user_id", userID,
    "activity_id", activityID,
    "verb", parsed.VerbID,
    "top_level", parsed.TopLevel,
    "completes", completes)

  if completes {
    if err := s.completion.OnActivityCompleted(ctx, userID, activityID); err != nil {
      s.log.Error("Failed to propagate activity completion",
        "user_id", userID, "activity_id", activityID, "error", err)
    }
  }
  return &XapiIngestResult{Attempt: attempt, MarkedComplete: completes}, nil
}
