// Package codec reads and writes registered records as XML.
//
// The codec has no per-type code. It walks the field descriptors of a schema.Registry:
// attributes become XML attributes under their wire name, scalars become child elements
// holding text, nested records are wrapped one level deep as <field><Concrete/></field>
// so the variant of a polymorphic field is recoverable from its tag, and collections
// wrap one child per item, with scalar items written as <el>text</el>.
//
// Decoding ignores child elements that name no field, so newer documents load in older
// builds. A document that fails to decode yields no value at all.
package codec
