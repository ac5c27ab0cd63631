package query

import (
	"fmt"

	"github.com/graphql-go/graphql"
)

var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "The stored record, unmodified.",
	Serialize:   func(v interface{}) interface{} { return v },
})

func fieldString(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func (e *Executor) buildSchema() (graphql.Schema, error) {
	country := graphql.NewObject(graphql.ObjectConfig{
		Name: "Country",
		Fields: graphql.Fields{
			"code": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*record).code, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return fieldString(p.Source.(*record).fields["name"]), nil
				},
			},
			"field": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name, _ := p.Args["name"].(string)
					return fieldString(p.Source.(*record).fields[name]), nil
				},
			},
			"record": &graphql.Field{
				Type: jsonScalar,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*record).fields, nil
				},
			},
		},
	})

	root := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"country": &graphql.Field{
				Type: country,
				Args: graphql.FieldConfigArgument{
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					code, _ := p.Args["code"].(string)
					rec, err := e.lookup(p.Context, code)
					if err != nil || rec == nil {
						return nil, err
					}
					return rec, nil
				},
			},
			"countries": &graphql.Field{
				Type: graphql.NewList(country),
				Args: graphql.FieldConfigArgument{
					"codes": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					codes, _ := p.Args["codes"].([]interface{})
					out := make([]interface{}, 0, len(codes))
					for _, c := range codes {
						code, _ := c.(string)
						rec, err := e.lookup(p.Context, code)
						if err != nil {
							return nil, err
						}
						if rec != nil {
							out = append(out, rec)
						}
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: root})
}
