// Package access decides who may act on a lock.
//
// The owner is whoever the device's latest heartbeat names. Anyone else
// needs a grant that has been accepted and has not expired. Owners may do
// everything; grantees may probe, lock and unlock. The same lookup yields
// the set of users who receive live updates for a device.
package access
