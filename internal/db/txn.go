package db

import (
  "context"
  "gorm.io/gorm"
)

// AfterCommit collects callbacks to run only once the enclosing transaction
// has committed. A rollback discards them, so cleanup of superseded files
// can never orphan data a rolled-back mutation still references. Callbacks
// handle (and log) their own failures; nothing propagates from here.
type AfterCommit struct {
  callbacks []func()
}

func (a *AfterCommit) OnCommit(fn func()) {
  if fn == nil {
    return
  }
  a.callbacks = append(a.callbacks, fn)
}

func (a *AfterCommit) run() {
  for _, fn := range a.callbacks {
    fn()
  }
}

// RunInTx runs fn inside a gorm transaction and, on successful commit,
// fires the callbacks fn queued on the AfterCommit it received.
func RunInTx(ctx context.Context, gormDB *gorm.DB, fn func(tx *gorm.DB, after *AfterCommit) error) error {
  after := &AfterCommit{}
  err := gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    return fn(tx, after)
  })
  if err != nil {
    return err
  }
  after.run()
  return nil
}
