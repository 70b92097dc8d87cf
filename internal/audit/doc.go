// Package audit keeps a short local journal of the management actions the
// device received: reboots, factory resets, metadata updates and commands.
//
// Entries are written before an action runs, so a reboot or an upgrade that
// never returns still leaves a trace. The journal lives in the audit_logs
// table, which a factory reset does not clear, and is pruned to a fixed
// number of entries on every write.
package audit
