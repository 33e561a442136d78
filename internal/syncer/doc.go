// Package syncer reconciles live scoreboard state with the shared score table.
//
// # Push flag
//
// Each row carries push_flag. Rows written from live state (Push, SetValue)
// carry false and are never re-applied by Pull. Rows staged by an external
// writer carry true and are applied on the instance's next Pull. A pass always
// pulls before it pushes, so a staged row gets one chance to land before the
// push marks everything locally authoritative again.
//
// # Rounding
//
// Stored values are floating point; live scores are integers. Pull rounds half
// away from zero (41.7 → 42, 2.5 → 3, -2.5 → -3) and clamps to the 32-bit range.
//
// # Failure policy
//
// Push and Pull never return errors; they report them in PassReport and log.
// A failing row does not stop Push. A missing table is recreated and ends the
// current Push. A failing query ends only the Pull. Rows for boards missing
// locally stay pending; they are counted every pass but logged once per board
// per window. SetValue and GetValue return errors to the caller.
package syncer
