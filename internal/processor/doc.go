// Package processor contains the core business logic of dsxlate. It wires
// the configured engine, dataset provider and checkpoint store together and
// drives translation, consolidation, publication, model listing and
// checkpoint archiving. The cli commands are thin wrappers around it.
package processor
