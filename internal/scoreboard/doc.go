// Package scoreboard models the host's live scoreboard state.
//
// Live state belongs to one goroutine, the host's main loop. The sync engine
// reads and writes it only through an Accessor, and only from inside
// Executor.Do so that every access is marshaled onto that goroutine:
//
//	loop := scoreboard.NewLoop(50*time.Millisecond, game.Step)
//	go engine.Push(ctx, "lobby-1")  // calls loop.Do internally
//	loop.Run(ctx)                   // on the main goroutine
//
// Callers never hold an Entry or board across a Do boundary; each Do
// re-resolves the board by name.
package scoreboard
