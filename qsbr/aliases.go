package qsbr

// Flavor-suffixed aliases for the package-level ambient API, matching
// liburcu's convention of suffixing its public symbols with the RCU flavor
// in use (e.g. rcu_read_lock_qsbr). Not needed for any compatibility this
// module requires on its own; provided only for code ported from, or
// written against, that naming convention. Each is a thin wrapper
// delegating to the primary name.

// RegisterThreadQSBR is an alias for Register.
func RegisterThreadQSBR() { Register() }

// UnregisterThreadQSBR is an alias for Unregister.
func UnregisterThreadQSBR() { Unregister() }

// ReadLockQSBR is an alias for ReadLock.
func ReadLockQSBR() { ReadLock() }

// ReadUnlockQSBR is an alias for ReadUnlock.
func ReadUnlockQSBR() { ReadUnlock() }

// QuiescentStateQSBR is an alias for QuiescentState.
func QuiescentStateQSBR() { QuiescentState() }

// ThreadOfflineQSBR is an alias for Offline.
func ThreadOfflineQSBR() { Offline() }

// ThreadOnlineQSBR is an alias for Online.
func ThreadOnlineQSBR() { Online() }

// ReadOngoingQSBR is an alias for ReadOngoing.
func ReadOngoingQSBR() bool { return ReadOngoing() }

// SynchronizeRCUQSBR is an alias for Synchronize.
func SynchronizeRCUQSBR() { Synchronize() }
