/*
Package config loads declarative subsystem topologies from YAML.

A topology names each subsystem and its parents, and optionally marks
roots for automatic startup:

	max_subsystems: 16
	log_level: debug
	subsystems:
	  - name: os
	    autostart: true
	  - name: camera
	    parents: [os]
	  - name: metadata
	    parents: [os]

Validation happens at parse time: names must be unique and non-empty,
every declared parent must exist, and the parent relation must be
acyclic. Cycles are rejected here, at the boundary, because the runtime
core leaves cyclic graphs undefined.
*/
package config
