// Package task provides the kernel's cooperative task registry.
//
// A task is one running instance of an application. Tasks move through
// a small state machine:
//
//	ready -> running <-> suspended
//	any   -> terminated (removed from the registry)
//
// Invalid transitions are silent no-ops, so racing callers cannot
// corrupt state. Terminated tasks are observable only by state-change
// listeners: by the time a listener runs, registry queries no longer
// return the task.
//
// Example Usage:
//
//	mgr := task.NewManager()
//	off := mgr.OnStateChange(func(t task.Task, prev task.State) {
//	    log.Printf("%s: %s -> %s", t.ID, prev, t.State)
//	})
//	tsk := mgr.Spawn("notepad")
//	mgr.Resume(tsk.ID)
//	mgr.Kill(tsk.ID)
//	off()
package task
