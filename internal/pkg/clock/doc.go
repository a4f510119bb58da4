// Package clock provides a tiny time abstraction.
//
// OTP expiry, refresh-token lifetimes and housekeeping cut-offs all read the
// current time through Clocker so tests can pin it with Fixed.
package clock
