package knowledge

import "fmt"

// factsQuery selects Asian countries with their capital, population and
// thumbnail. Dissolved states are excluded. The capital block is optional
// so that countries without a capital still serve as decoy subjects.
const factsQuery = `PREFIX dbo:  <http://dbpedia.org/ontology/>
PREFIX dbp:  <http://dbpedia.org/property/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX dct:  <http://purl.org/dc/terms/>
PREFIX dbc:  <http://dbpedia.org/resource/Category:>

SELECT DISTINCT ?country ?countryLabel ?capital ?capitalLabel ?population ?thumbnail WHERE {
  ?country a dbo:Country ;
           dct:subject dbc:Countries_in_Asia ;
           rdfs:label ?countryLabel .
  FILTER ( langMatches(lang(?countryLabel), "EN") )

  OPTIONAL { ?country dbo:dissolutionYear ?dissolved }
  FILTER ( !BOUND(?dissolved) )

  OPTIONAL {
    { ?country dbo:capital ?capital }
    UNION
    { ?country dbp:capital ?capital . FILTER ( isIRI(?capital) ) }
    ?capital rdfs:label ?capitalLabel .
    FILTER ( langMatches(lang(?capitalLabel), "EN") )
  }

  OPTIONAL { ?country dbo:populationTotal ?population }
  OPTIONAL { ?country dbo:thumbnail ?thumbnail }
}
ORDER BY RAND()
LIMIT %d`

// capitalsQuery selects English capital labels of Asian countries.
const capitalsQuery = `PREFIX dbo:  <http://dbpedia.org/ontology/>
PREFIX dbp:  <http://dbpedia.org/property/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX dct:  <http://purl.org/dc/terms/>
PREFIX dbc:  <http://dbpedia.org/resource/Category:>

SELECT DISTINCT ?capitalLabel WHERE {
  ?country a dbo:Country ;
           dct:subject dbc:Countries_in_Asia .

  { ?country dbo:capital ?capital }
  UNION
  { ?country dbp:capital ?capital . FILTER ( isIRI(?capital) ) }

  ?capital rdfs:label ?capitalLabel .
  FILTER ( langMatches(lang(?capitalLabel), "EN") )
}
ORDER BY RAND()
LIMIT %d`

// buildQuery renders a query template with count as its LIMIT. The limit
// is a size hint; the endpoint may return fewer rows.
func buildQuery(tmpl string, count int) string {
	return fmt.Sprintf(tmpl, max(1, count))
}
