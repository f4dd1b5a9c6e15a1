// Package cache remembers controllers found by scanning.
//
// Controllers usually advertise a generic local name, and some platforms only report the name in
// scan responses. Recording each advertisement in a [DeviceCache] lets clients address a
// controller by a name they have seen before and connect by address without waiting for a scan
// response. The cache is a hint: connections always go through a fresh scan for the resolved
// target.
package cache
