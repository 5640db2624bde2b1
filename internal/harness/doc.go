// Package harness runs YAML scenarios against a Runner wired to
// deterministic collaborators and records a trace for golden comparison.
//
// Every scenario gets a fresh in-memory store, a manual clock, sequential
// script ids ("script-0001", ...), a recording executor and an in-memory
// file transfer. Nothing touches the network or the filesystem, so traces
// are byte-for-byte reproducible.
//
// # Scenario Format
//
//	name: create_and_save
//	description: "A saved draft becomes the first script"
//	setup:
//	  scripts:
//	    - { id: a, title: "Old", code: "1" }
//	  library: "window.jQuery = {}"
//	flow:
//	  - op: open_new
//	  - op: edit
//	    args: { title: "Hello", code: "alert(1)" }
//	  - op: save
//	  - op: delete
//	    args: { id: nope }
//	    expect: { error: NOT_FOUND }
//	assertions:
//	  - type: scripts
//	    titles: ["Hello", "Old"]
//	  - type: editor
//	    mode: closed
//
// A step without expect must succeed. expect.error names the runner error
// code the step must fail with; expect.titles checks the scripts a search
// returned.
//
// # Operations
//
// Editor: open_new, open, edit, close, save. Collection: delete, search,
// dispatch. Host: run, run_script, run_draft, run_first, cache_library.
// Transfer: export, import. Time and lifecycle: advance, shutdown,
// restart. Fault injection: store_down, store_up, host_down, host_up.
//
// restart builds a new Runner over the same store with a new clock, the
// way a process that died without flushing would come back.
//
// # Assertion Types
//
//   - scripts: the in-memory collection titles (and ids, if given), in order
//   - persisted: the titles in the stored snapshot, in order
//   - editor: the editor mode, selection and draft fields
//   - writes: the number of successful store writes made by the flow
//   - injected: every piece of code the host received, in order
//   - trace_count: how many steps ran op with the given outcome
package harness
