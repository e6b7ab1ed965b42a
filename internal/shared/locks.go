package shared

// NotificationSweepLockKey is the redis key guarding the retention sweep
// critical section. Only one sweep may run at a time across workers.
const NotificationSweepLockKey = "notifications:sweep:lock"
