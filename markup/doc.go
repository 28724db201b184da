// Package markup converts scene documents to and from text.
//
// The XML form is the editable one and round-trips through ReadXML. Each
// element becomes an XML element named after its tag, with a type attribute
// naming its layout. Text values are character data and list items are
// <entry> children:
//
//	<root_node endianness="little">
//	   <Mesh>
//	      <Name type="string">hull</Name>
//	      <Indices type="uint16_list">
//	         <entry>0</entry>
//	         <entry>1</entry>
//	      </Indices>
//	   </Mesh>
//	</root_node>
//
// Payloads diverted to a hook appear as a filepath attribute with no entries.
//
// The YAML form written by WriteYAML is a read-only view for inspection.
package markup
