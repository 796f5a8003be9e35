// Package doctpl renders print templates into the intermediate markup consumed by a PDF backend:
// an HTML body, a stylesheet and the page geometry.
//
// Two template dialects are supported. The modern dialect is tag based:
//
//	<template>
//	  <page format="A4" orientation="portrait"><margins top="20" bottom="20"/></page>
//	  <styles>h1 { font-size: 14pt }</styles>
//	  <body>
//	    <h1>{{association_name}}</h1>
//	    <variable name="birth_date" format="date" default="-"/>
//	    <loop source="items"><p>{{loop_index}}. {{loop_item_name}}</p></loop>
//	    <condition test="status == attivo"><p>Socio attivo</p></condition>
//	  </body>
//	</template>
//
// The legacy dialect comes from an older generation tool. It positions paragraphs on the page
// and uses ${...} placeholders:
//
//	<pdf creator="GestionaleWeb">
//	  <body format="a4" marginleft="10">
//	    <page orientation="p">
//	      <paragraph position="absolute" left="5+7+27" top="20">${codice fiscale}</paragraph>
//	      <!-- $Include header/logo -->
//	    </page>
//	  </body>
//	</pdf>
//
// Positional attributes of the legacy dialect are evaluated by a restricted add/subtract
// evaluator (see EvalOffset); no general expression evaluation ever happens on template input.
//
// Values are looked up in a data context of nested mappings. Nested keys can be reached
// joined with underscores ("member_address_city") or dots ("member.address.city"). Every
// resolved value is HTML-escaped; literal template markup passes through unchanged.
package doctpl
