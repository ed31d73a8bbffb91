// Package vm implements the Yaprak virtual machine.
//
// This package contains:
//   - NaN-boxed values backed by a reference-counted heap arena
//   - Storages: the per-function memory layout of constants, variables and temps
//   - Opcodes, a bytecode builder and a disassembler
//   - The interpreter, which runs a Program over a vector of scopes
//   - Capability classes for texts, lists, dictionaries and numbers
//   - Native modules and the compiled image format
package vm
