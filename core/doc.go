/*
	Package core provides types, constants, and functions that have no other dependencies
	and can be used by all packages within brainio.  This includes logging, the error
	taxonomy shared by catalog lookup and array selection, generic settings maps, and the
	binary serialization envelope used for persisted array metadata.
*/
package core
