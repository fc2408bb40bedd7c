// Package idalloc implements the free-number allocators of spec C3:
// given an inclusive [min,max] range and the set of values already in
// use, return the smallest unused integer, or an error sentinel when the
// range is exhausted. Grounded on
// original_source/drbdmanage/server.py's get_free_number family
// (get_free_minor_nr, get_free_port_nr, get_free_node_id,
// get_free_drbdctrl_node_id, get_free_volume_id).
package idalloc
