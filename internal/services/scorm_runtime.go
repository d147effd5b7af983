package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "strconv"
  "strings"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

// RteMethod is the closed set of runtime API methods. Anything outside it
// is rejected with error 201, never dispatched dynamically.
type RteMethod int

const (
  MethodUnknown RteMethod = iota
  MethodInitialize
  MethodTerminate
  MethodGetValue
  MethodSetValue
  MethodCommit
  MethodGetLastError
  MethodGetErrorString
  MethodGetDiagnostic
)

// ParseRteMethod accepts both SCORM 1.2 (LMSInitialize) and 2004
// (Initialize) spellings.
func ParseRteMethod(name string) RteMethod {
  switch name {
  case "Initialize", "LMSInitialize":
    return MethodInitialize
  case "Terminate", "LMSFinish":
    return MethodTerminate
  case "GetValue", "LMSGetValue":
    return MethodGetValue
  case "SetValue", "LMSSetValue":
    return MethodSetValue
  case "Commit", "LMSCommit":
    return MethodCommit
  case "GetLastError", "LMSGetLastError":
    return MethodGetLastError
  case "GetErrorString", "LMSGetErrorString":
    return MethodGetErrorString
  case "GetDiagnostic", "LMSGetDiagnostic":
    return MethodGetDiagnostic
  }
  return MethodUnknown
}

const (
  rteErrNone            = "0"
  rteErrInvalidArgument = "201"
)

// scormErrorStrings is the error code table served by GetErrorString,
// covering both SCORM 1.2 and 2004 code ranges.
var scormErrorStrings = map[string]string{
  "0":   "No error",
  "101": "General exception",
  "102": "General initialization failure",
  "103": "Already initialized",
  "104": "Content instance terminated",
  "111": "General termination failure",
  "112": "Termination before initialization",
  "113": "Termination after termination",
  "122": "Retrieve data before initialization",
  "123": "Retrieve data after termination",
  "132": "Store data before initialization",
  "133": "Store data after termination",
  "142": "Commit before initialization",
  "143": "Commit after termination",
  "201": "General argument error",
  "301": "General get failure",
  "401": "General set failure",
  "402": "General argument error",
  "403": "Element cannot have children",
  "404": "Element not an array - cannot have count",
  "405": "Element is not an array - cannot have count",
}

func scormErrorString(code string) string {
  if s, ok := scormErrorStrings[code]; ok {
    return s
  }
  return "Unknown error"
}

// RteResponse is the wire shape of every runtime API reply. Both fields
// are always strings; protocol failures still ride an HTTP 200.
type RteResponse struct {
  Result    string `json:"result"`
  ErrorCode string `json:"errorCode"`
}

type rteRequest struct {
  Method     string        `json:"method"`
  Parameters []interface{} `json:"parameters"`
}

func rteOK(result string) *RteResponse {
  return &RteResponse{Result: result, ErrorCode: rteErrNone}
}

func rteError() *RteResponse {
  return &RteResponse{Result: "false", ErrorCode: rteErrInvalidArgument}
}

// paramString coerces a JSON parameter to the string the data model
// stores. SCORM API wrappers occasionally pass numbers through.
func paramString(v interface{}) string {
  switch t := v.(type) {
  case string:
    return t
  case float64:
    return strconv.FormatFloat(t, 'f', -1, 64)
  case bool:
    return strconv.FormatBool(t)
  case nil:
    return ""
  default:
    return fmt.Sprintf("%v", t)
  }
}

const (
  lockRetryAttempts = 5
  lockRetryDelay    = 50 * time.Millisecond
  lockRetryBackoff  = 1.5
)

func isDBLockError(err error) bool {
  if err == nil {
    return false
  }
  msg := strings.ToLower(err.Error())
  return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// retryOnDBLock retries fn on lock contention with exponential backoff.
// SQLite serializes writers with a coarse lock; a busy course page fires
// many concurrent SetValue calls at one attempt. Any other error is
// returned on the first attempt.
func retryOnDBLock(log *logger.Logger, fn func() error) error {
  delay := lockRetryDelay
  var err error
  for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
    err = fn()
    if err == nil || !isDBLockError(err) {
      return err
    }
    if attempt < lockRetryAttempts {
      log.Warn("Database locked, retrying", "attempt", attempt, "delay", delay)
      time.Sleep(delay)
      delay = time.Duration(float64(delay) * lockRetryBackoff)
    }
  }
  return err
}

// formatScormTime renders a duration in the SCORM 1.2 timespan format
// HHHH:MM:SS.cc.
func formatScormTime(d time.Duration) string {
  if d < 0 {
    d = 0
  }
  h := d / time.Hour
  d -= h * time.Hour
  m := d / time.Minute
  d -= m * time.Minute
  centis := d.Round(10*time.Millisecond) / (10 * time.Millisecond)
  s := centis / 100
  c := centis % 100
  return fmt.Sprintf("%04d:%02d:%02d.%02d", h, m, s, c)
}

// parseScormTime reads the HHHH:MM:SS(.cc) timespan format. Malformed
// values yield zero.
func parseScormTime(v string) time.Duration {
  parts := strings.Split(v, ":")
  if len(parts) != 3 {
    return 0
  }
  h, err1 := strconv.Atoi(parts[0])
  m, err2 := strconv.Atoi(parts[1])
  s, err3 := strconv.ParseFloat(parts[2], 64)
  if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || s < 0 {
    return 0
  }
  return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s*float64(time.Second))
}

type ScormRuntimeService interface {
  // GetAttemptForUser loads an attempt and verifies ownership. A missing
  // or foreign attempt is a transport-level not-found, not a protocol
  // error.
  GetAttemptForUser(ctx context.Context, attemptID, userID uuid.UUID) (*types.ScormAttempt, error)
  // Call dispatches one runtime API envelope against an attempt. It never
  // returns an error: every failure is encoded in the response envelope.
  Call(ctx context.Context, attempt *types.ScormAttempt, raw []byte) *RteResponse
}

type scormRuntimeService struct {
  gdb         *gorm.DB
  attemptRepo repos.ScormAttemptRepo
  dataRepo    repos.ScormDataRepo
  userRepo    repos.UserRepo
  completion  CompletionService
  log         *logger.Logger
}

func NewScormRuntimeService(
  gdb *gorm.DB,
  attemptRepo repos.ScormAttemptRepo,
  dataRepo repos.ScormDataRepo,
  userRepo repos.UserRepo,
  completion CompletionService,
  baseLog *logger.Logger,
) ScormRuntimeService {
  return &scormRuntimeService{
    gdb:         gdb,
    attemptRepo: attemptRepo,
    dataRepo:    dataRepo,
    userRepo:    userRepo,
    completion:  completion,
    log:         baseLog.With("service", "ScormRuntimeService"),
  }
}

func (s *scormRuntimeService) GetAttemptForUser(ctx context.Context, attemptID, userID uuid.UUID) (*types.ScormAttempt, error) {
  attempt, err := s.attemptRepo.GetByID(ctx, nil, attemptID)
  if err != nil {
    return nil, err
  }
  if attempt.UserID != userID {
    return nil, gorm.ErrRecordNotFound
  }
  return attempt, nil
}

func (s *scormRuntimeService) Call(ctx context.Context, attempt *types.ScormAttempt, raw []byte) *RteResponse {
  var req rteRequest
  if err := json.Unmarshal(raw, &req); err != nil {
    s.log.Warn("Malformed runtime API envelope", "attempt_id", attempt.ID, "error", err)
    return rteError()
  }

  method := ParseRteMethod(req.Method)
  if method == MethodUnknown {
    s.log.Warn("Unknown runtime API method", "attempt_id", attempt.ID, "method", req.Method)
    return rteError()
  }

  switch method {
  case MethodInitialize:
    if err := s.attemptRepo.TouchLastAccessed(ctx, nil, attempt.ID, time.Now()); err != nil {
      s.log.Error("Failed to touch attempt", "attempt_id", attempt.ID, "error", err)
    }
    return rteOK("true")

  case MethodTerminate:
    return s.terminate(ctx, attempt)

  case MethodGetValue:
    if len(req.Parameters) < 1 {
      return rteError()
    }
    return s.getValue(ctx, attempt, paramString(req.Parameters[0]))

  case MethodSetValue:
    if len(req.Parameters) < 2 {
      return rteError()
    }
    return s.setValue(ctx, attempt, paramString(req.Parameters[0]), paramString(req.Parameters[1]))

  case MethodCommit:
    if err := s.attemptRepo.TouchLastAccessed(ctx, nil, attempt.ID, time.Now()); err != nil {
      s.log.Error("Failed to touch attempt", "attempt_id", attempt.ID, "error", err)
    }
    return rteOK("true")

  case MethodGetLastError:
    return rteOK(rteErrNone)

  case MethodGetErrorString:
    if len(req.Parameters) < 1 {
      return rteError()
    }
    return rteOK(scormErrorString(paramString(req.Parameters[0])))

  case MethodGetDiagnostic:
    // No diagnostic detail is kept beyond the error string table.
    return rteOK("")
  }
  return rteError()
}

// terminate folds any reported session_time into the attempt's total time
// and stamps last access.
func (s *scormRuntimeService) terminate(ctx context.Context, attempt *types.ScormAttempt) *RteResponse {
  now := time.Now()
  fields := map[string]interface{}{"last_accessed": now}

  session := s.lookupSessionTime(ctx, attempt.ID)
  if session > 0 {
    total := session
    if attempt.TotalTime != nil {
      total += *attempt.TotalTime
    }
    fields["total_time"] = total
  }
  if err := s.attemptRepo.Updates(ctx, nil, attempt.ID, fields); err != nil {
    s.log.Error("Failed to finalize attempt", "attempt_id", attempt.ID, "error", err)
  }
  return rteOK("true")
}

func (s *scormRuntimeService) lookupSessionTime(ctx context.Context, attemptID uuid.UUID) time.Duration {
  for _, key := range []string{"cmi.core.session_time", "cmi.session_time"} {
    row, err := s.dataRepo.Get(ctx, nil, attemptID, key)
    if err == nil {
      return parseScormTime(row.Value)
    }
  }
  return 0
}

// getValue resolves a data model element: stored value first, then the
// attempt's typed fields, then the LMS-provided defaults. Elements this
// runtime does not model return "" with no error, which keeps broken
// content from looping on error handling.
func (s *scormRuntimeService) getValue(ctx context.Context, attempt *types.ScormAttempt, key string) *RteResponse {
  if row, err := s.dataRepo.Get(ctx, nil, attempt.ID, key); err == nil {
    return rteOK(row.Value)
  } else if !errors.Is(err, gorm.ErrRecordNotFound) {
    s.log.Error("Failed to read data model element", "attempt_id", attempt.ID, "key", key, "error", err)
    return rteError()
  }

  switch key {
  case "cmi.core.student_id", "cmi.learner_id":
    return rteOK(attempt.UserID.String())
  case "cmi.core.student_name", "cmi.learner_name":
    user, err := s.userRepo.GetByID(ctx, nil, attempt.UserID)
    if err != nil {
      return rteOK("")
    }
    return rteOK(user.FullName())
  case "cmi.core.lesson_status", "cmi.completion_status":
    return rteOK(attempt.CompletionStatus)
  case "cmi.success_status":
    return rteOK(attempt.SuccessStatus)
  case "cmi.core.lesson_location", "cmi.location":
    return rteOK(attempt.Location)
  case "cmi.suspend_data":
    return rteOK(attempt.SuspendData)
  case "cmi.core.credit", "cmi.credit":
    return rteOK("credit")
  case "cmi.core.entry", "cmi.entry":
    return rteOK("ab-initio")
  case "cmi.core.lesson_mode", "cmi.mode":
    return rteOK("normal")
  case "cmi.core.exit", "cmi.exit":
    return rteOK("")
  case "cmi.core.session_time", "cmi.session_time":
    return rteOK("")
  case "cmi.core.total_time", "cmi.total_time":
    var total time.Duration
    if attempt.TotalTime != nil {
      total = *attempt.TotalTime
    }
    return rteOK(formatScormTime(total))
  case "cmi.core.score.raw", "cmi.score.raw":
    return rteOK(formatScore(attempt.ScoreRaw))
  case "cmi.core.score.max", "cmi.score.max":
    return rteOK(formatScore(attempt.ScoreMax))
  case "cmi.core.score.min", "cmi.score.min":
    return rteOK(formatScore(attempt.ScoreMin))
  case "cmi.score.scaled":
    return rteOK(formatScore(attempt.ScoreScaled))
  }
  return rteOK("")
}

func formatScore(v *float64) string {
  if v == nil {
    return ""
  }
  return strconv.FormatFloat(*v, 'f', -1, 64)
}

// setValue stores the raw element and promotes well-known elements into
// typed attempt fields in one transaction, retried on lock contention.
// A lesson status of completed or passed additionally propagates course
// completion after the transaction commits.
func (s *scormRuntimeService) setValue(ctx context.Context, attempt *types.ScormAttempt, key, value string) *RteResponse {
  fields := map[string]interface{}{"last_accessed": time.Now()}
  propagate := false

  switch key {
  case "cmi.core.lesson_status", "cmi.completion_status":
    switch value {
    case "completed":
      fields["completion_status"] = types.CompletionCompleted
      propagate = true
    case "passed":
      fields["completion_status"] = types.CompletionCompleted
      fields["success_status"] = types.SuccessPassed
      propagate = true
    case "failed":
      fields["completion_status"] = types.CompletionCompleted
      fields["success_status"] = types.SuccessFailed
    case "incomplete":
      fields["completion_status"] = types.CompletionIncomplete
    case "browsed":
      fields["completion_status"] = types.CompletionIncomplete
    case "not attempted":
      fields["completion_status"] = types.CompletionNotAttempted
    }
  case "cmi.success_status":
    switch value {
    case "passed":
      fields["success_status"] = types.SuccessPassed
    case "failed":
      fields["success_status"] = types.SuccessFailed
    case "unknown":
      fields["success_status"] = types.SuccessUnknown
    }
  case "cmi.core.lesson_location", "cmi.location":
    fields["location"] = value
  case "cmi.suspend_data":
    fields["suspend_data"] = value
  case "cmi.core.score.raw", "cmi.score.raw":
    setScoreField(fields, "score_raw", value)
  case "cmi.core.score.max", "cmi.score.max":
    setScoreField(fields, "score_max", value)
  case "cmi.core.score.min", "cmi.score.min":
    setScoreField(fields, "score_min", value)
  case "cmi.score.scaled":
    setScoreField(fields, "score_scaled", value)
  }

  err := retryOnDBLock(s.log, func() error {
    return db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
      if err := s.dataRepo.Upsert(ctx, tx, attempt.ID, key, value); err != nil {
        return err
      }
      return s.attemptRepo.Updates(ctx, tx, attempt.ID, fields)
    })
  })
  if err != nil {
    s.log.Error("Failed to set data model element", "attempt_id", attempt.ID, "key", key, "error", err)
    return rteError()
  }

  if propagate {
    if err := s.completion.CompleteScormPackage(ctx, attempt.UserID, attempt.PackageID); err != nil {
      s.log.Error("Failed to propagate completion",
        "attempt_id", attempt.ID, "package_id", attempt.PackageID, "error", err)
    }
  }
  return rteOK("true")
}

// setScoreField parses a numeric score; unparsable values are dropped
// silently because content players routinely send "" to clear scores.
func setScoreField(fields map[string]interface{}, column, value string) {
  f, err := strconv.ParseFloat(value, 64)
  if err != nil {
    return
  }
  fields[column] = f
}
